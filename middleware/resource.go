package middleware

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// unknownService is reported when no name can be detected
const unknownService = "unknown-service"

// namespaceFile is mounted into every pod by Kubernetes
const namespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

// serviceIdentity names this process in traces and profiles
type serviceIdentity struct {
	Name      string
	Namespace string
}

// detectIdentity resolves the service name in priority order
// OTEL_SERVICE_NAME, POD_NAME (Downward API), the configured name.
// The namespace comes from POD_NAMESPACE or the mounted service account.
func detectIdentity(configured string) serviceIdentity {
	id := serviceIdentity{Name: os.Getenv("OTEL_SERVICE_NAME")}
	if id.Name == "" {
		if pod := os.Getenv("POD_NAME"); pod != "" {
			id.Name = serviceFromPodName(pod)
		}
	}
	if id.Name == "" {
		id.Name = configured
	}
	if id.Name == "" {
		id.Name = unknownService
	}

	id.Namespace = os.Getenv("POD_NAMESPACE")
	if id.Namespace == "" {
		if data, err := os.ReadFile(namespaceFile); err == nil {
			id.Namespace = strings.TrimSpace(string(data))
		}
	}
	if id.Namespace == "" {
		id.Namespace = "default"
	}
	return id
}

// serviceFromPodName strips the replicaset and pod hashes from a pod name,
// e.g. "user-web-7d9f8b6c5d-x2k4p" -> "user-web".
func serviceFromPodName(podName string) string {
	parts := strings.Split(podName, "-")
	if len(parts) < 3 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-2], "-")
}

// CreateResource describes this process for the tracer provider. On a
// detection error it still returns a usable resource carrying the service
// attributes, alongside the error.
func CreateResource(ctx context.Context, name, version string) (*resource.Resource, error) {
	id := detectIdentity(name)
	attrs := []resource.Option{
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(id.Name),
			semconv.ServiceNamespaceKey.String(id.Namespace),
			semconv.ServiceVersionKey.String(version),
		),
	}

	res, err := resource.New(ctx, attrs...)
	if err != nil {
		fallback := resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceNameKey.String(id.Name),
			semconv.ServiceNamespaceKey.String(id.Namespace),
			semconv.ServiceVersionKey.String(version),
		)
		return fallback, fmt.Errorf("detect resource: %w", err)
	}
	return res, nil
}

// GetServiceName extracts the service name from a resource
func GetServiceName(res *resource.Resource) string {
	if v, ok := res.Set().Value(semconv.ServiceNameKey); ok && v.AsString() != "" {
		return v.AsString()
	}
	return unknownService
}
