package middleware

import (
	"github.com/duynhne/user-web/config"
	"github.com/grafana/pyroscope-go"
)

var profiler *pyroscope.Profiler

// InitProfiling initializes Pyroscope profiling with automatic service detection
func InitProfiling(cfg config.ProfilingConfig) error {
	id := detectIdentity(cfg.ServiceName)

	// CPU, heap and goroutine profiles are enough for a page-rendering frontend
	pcfg := pyroscope.Config{
		ApplicationName: id.Name,
		ServerAddress:   cfg.Endpoint,
		Tags: map[string]string{
			"service":   id.Name,
			"namespace": id.Namespace,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
		Logger: pyroscope.StandardLogger,
	}

	var err error
	profiler, err = pyroscope.Start(pcfg)
	return err
}

// StopProfiling stops Pyroscope profiling
func StopProfiling() {
	if profiler != nil {
		_ = profiler.Stop()
	}
}
