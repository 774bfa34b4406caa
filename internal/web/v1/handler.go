package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/duynhne/user-web/config"
	"github.com/duynhne/user-web/internal/core/domain"
	logicv1 "github.com/duynhne/user-web/internal/logic/v1"
	"github.com/duynhne/user-web/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	listTemplate   = "list.html"
	detailTemplate = "detail.html"

	flashUserDeleted = "User deleted successfully!"
)

// page is the data handed to every template.
type page struct {
	Title       string
	Flash       string
	ShowLoading bool
	List        logicv1.ListState
	Detail      logicv1.DetailState
}

// UserHandler renders the users list and detail pages
type UserHandler struct {
	views config.ViewsConfig
}

// NewUserHandler creates a new user handler
func NewUserHandler(views config.ViewsConfig) *UserHandler {
	return &UserHandler{views: views}
}

func startSpan(c *gin.Context, name string) (context.Context, trace.Span) {
	return middleware.StartSpan(c.Request.Context(), name, trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
}

// ListPage handles GET /. The first display in a session fetches the
// collection; refresh=1 fetches it again.
func (h *UserHandler) ListPage(c *gin.Context) {
	ctx, span := startSpan(c, "http.list")
	defer span.End()

	sess := sessionFrom(c)
	sess.Detail.Reset()
	sess.List.CloseCreate()
	h.loadList(ctx, c, sess)

	sess.List.SetQuery(c.Query("q"))
	h.renderList(c, sess, http.StatusOK)
}

// CreateForm handles GET /users/new
func (h *UserHandler) CreateForm(c *gin.Context) {
	ctx, span := startSpan(c, "http.create_form")
	defer span.End()

	sess := sessionFrom(c)
	sess.Detail.Reset()
	h.loadList(ctx, c, sess)
	sess.List.OpenCreate()
	h.renderList(c, sess, http.StatusOK)
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	ctx, span := startSpan(c, "http.create")
	defer span.End()

	zapLogger := middleware.GetLoggerFromGinContext(c)
	sess := sessionFrom(c)
	h.loadList(ctx, c, sess)

	var draft domain.Draft
	if err := c.ShouldBind(&draft); err != nil {
		span.RecordError(err)
		zapLogger.Warn("Invalid create form", zap.Error(err))
		c.String(http.StatusBadRequest, sanitizeFormError(err))
		return
	}

	user, errs, err := sess.List.SubmitCreate(ctx, draft)
	switch {
	case err != nil:
		span.RecordError(err)
		zapLogger.Error("Failed to create user", zap.Error(err))
		h.renderList(c, sess, http.StatusBadGateway)
		return
	case !errs.Valid():
		h.renderList(c, sess, http.StatusUnprocessableEntity)
		return
	}

	middleware.AddSpanAttributes(ctx, attribute.Int("user.id", user.ID))
	zapLogger.Info("User created", zap.Int("user_id", user.ID))
	c.Redirect(http.StatusSeeOther, "/")
}

// DetailPage handles GET /user/:id
func (h *UserHandler) DetailPage(c *gin.Context) {
	ctx, span := startSpan(c, "http.detail")
	defer span.End()

	id, ok := h.userID(c, span)
	if !ok {
		return
	}

	sess := sessionFrom(c)
	sess.Detail.CancelEdit()
	sess.Detail.CancelDelete()

	var err error
	if c.Query("refresh") == "1" {
		err = sess.Detail.Load(ctx, id)
	} else {
		err = sess.Detail.EnsureLoaded(ctx, id)
	}
	h.renderDetail(c, sess, h.fetchStatus(c, span, err))
}

// EditForm handles GET /user/:id/edit
func (h *UserHandler) EditForm(c *gin.Context) {
	ctx, span := startSpan(c, "http.edit_form")
	defer span.End()

	id, ok := h.userID(c, span)
	if !ok {
		return
	}

	sess := sessionFrom(c)
	if err := sess.Detail.EnsureLoaded(ctx, id); err != nil {
		h.renderDetail(c, sess, h.fetchStatus(c, span, err))
		return
	}
	sess.Detail.CancelDelete()
	sess.Detail.OpenEdit()
	h.renderDetail(c, sess, http.StatusOK)
}

// UpdateUser handles POST /user/:id/edit
func (h *UserHandler) UpdateUser(c *gin.Context) {
	ctx, span := startSpan(c, "http.update")
	defer span.End()

	id, ok := h.userID(c, span)
	if !ok {
		return
	}

	zapLogger := middleware.GetLoggerFromGinContext(c)
	sess := sessionFrom(c)
	if err := sess.Detail.EnsureLoaded(ctx, id); err != nil {
		h.renderDetail(c, sess, h.fetchStatus(c, span, err))
		return
	}

	var draft domain.Draft
	if err := c.ShouldBind(&draft); err != nil {
		span.RecordError(err)
		zapLogger.Warn("Invalid edit form", zap.Error(err))
		c.String(http.StatusBadRequest, sanitizeFormError(err))
		return
	}

	updated, errs, err := sess.Detail.SubmitEdit(ctx, draft)
	switch {
	case errors.Is(err, logicv1.ErrStaleResponse):
		c.Redirect(http.StatusSeeOther, userPath(id))
		return
	case err != nil:
		span.RecordError(err)
		zapLogger.Error("Failed to update user", zap.Int("user_id", id), zap.Error(err))
		h.renderDetail(c, sess, http.StatusBadGateway)
		return
	case !errs.Valid():
		h.renderDetail(c, sess, http.StatusUnprocessableEntity)
		return
	}

	sess.List.Replace(*updated)
	zapLogger.Info("User updated", zap.Int("user_id", id))
	c.Redirect(http.StatusSeeOther, userPath(id))
}

// DeleteForm handles GET /user/:id/delete
func (h *UserHandler) DeleteForm(c *gin.Context) {
	ctx, span := startSpan(c, "http.delete_form")
	defer span.End()

	id, ok := h.userID(c, span)
	if !ok {
		return
	}

	sess := sessionFrom(c)
	if err := sess.Detail.EnsureLoaded(ctx, id); err != nil {
		h.renderDetail(c, sess, h.fetchStatus(c, span, err))
		return
	}
	sess.Detail.CancelEdit()
	sess.Detail.OpenDelete()
	h.renderDetail(c, sess, http.StatusOK)
}

// DeleteUser handles POST /user/:id/delete
func (h *UserHandler) DeleteUser(c *gin.Context) {
	ctx, span := startSpan(c, "http.delete")
	defer span.End()

	id, ok := h.userID(c, span)
	if !ok {
		return
	}

	zapLogger := middleware.GetLoggerFromGinContext(c)
	sess := sessionFrom(c)
	if err := sess.Detail.EnsureLoaded(ctx, id); err != nil {
		h.renderDetail(c, sess, h.fetchStatus(c, span, err))
		return
	}

	deleted, err := sess.Detail.ConfirmDelete(ctx)
	if err != nil {
		span.RecordError(err)
		zapLogger.Error("Failed to delete user", zap.Int("user_id", id), zap.Error(err))
		h.renderDetail(c, sess, http.StatusBadGateway)
		return
	}

	sess.List.Remove(deleted)
	sess.SetFlash(flashUserDeleted)
	zapLogger.Info("User deleted", zap.Int("user_id", deleted))
	c.Redirect(http.StatusSeeOther, "/")
}

// loadList runs the list fetch detached from the request so that a client
// disconnect does not leave the view flagged as failed.
func (h *UserHandler) loadList(ctx context.Context, c *gin.Context, sess *logicv1.Session) {
	ctx = context.WithoutCancel(ctx)
	var err error
	if c.Request.Method == http.MethodGet && c.Query("refresh") == "1" {
		err = sess.List.Reload(ctx)
	} else {
		err = sess.List.EnsureLoaded(ctx)
	}
	if err != nil {
		middleware.GetLoggerFromGinContext(c).Warn("Failed to fetch users", zap.Error(err))
	}
}

func (h *UserHandler) userID(c *gin.Context, span trace.Span) (int, bool) {
	id, err := parseUserID(c.Param("id"))
	if err != nil {
		span.RecordError(err)
		c.String(http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	span.SetAttributes(attribute.Int("user.id", id))
	return id, true
}

// fetchStatus maps a detail fetch result to the page status.
func (h *UserHandler) fetchStatus(c *gin.Context, span trace.Span, err error) int {
	switch {
	case err == nil, errors.Is(err, logicv1.ErrStaleResponse):
		return http.StatusOK
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	default:
		span.RecordError(err)
		middleware.GetLoggerFromGinContext(c).Warn("Failed to fetch user", zap.Error(err))
		return http.StatusBadGateway
	}
}

func (h *UserHandler) renderList(c *gin.Context, sess *logicv1.Session, status int) {
	state := sess.List.Snapshot()
	if state.Failed && status == http.StatusOK {
		status = http.StatusBadGateway
	}
	c.HTML(status, listTemplate, page{
		Title:       "Users",
		Flash:       sess.PopFlash(),
		ShowLoading: h.views.ListLoadingIndicator,
		List:        state,
	})
}

func (h *UserHandler) renderDetail(c *gin.Context, sess *logicv1.Session, status int) {
	c.HTML(status, detailTemplate, page{
		Title:  "User details",
		Flash:  sess.PopFlash(),
		Detail: sess.Detail.Snapshot(),
	})
}

func userPath(id int) string {
	return "/user/" + strconv.Itoa(id)
}
