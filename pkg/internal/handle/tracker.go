package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filetally/pkg/internal/service"
	"github.com/yeisme/filetally/pkg/internal/tracker"
	"github.com/yeisme/filetally/pkg/internal/types"
)

// DefaultReconcileTimeout 手动对账的最长执行时间.
const DefaultReconcileTimeout = 5 * time.Minute

// TrackerHandlers 文件追踪相关的 HTTP 处理器.
type TrackerHandlers struct {
	svc              *service.TrackerService
	reconcileTimeout time.Duration
}

// HandlerOption 配置 TrackerHandlers.
type HandlerOption func(*TrackerHandlers)

// WithReconcileTimeout 设置手动对账超时.
func WithReconcileTimeout(d time.Duration) HandlerOption {
	return func(h *TrackerHandlers) {
		if d > 0 {
			h.reconcileTimeout = d
		}
	}
}

// NewTrackerHandlers 创建处理器.
func NewTrackerHandlers(svc *service.TrackerService, opts ...HandlerOption) *TrackerHandlers {
	h := &TrackerHandlers{svc: svc, reconcileTimeout: DefaultReconcileTimeout}
	for _, o := range opts {
		o(h)
	}

	return h
}

// Greeting 问候.
func (h *TrackerHandlers) Greeting() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, service.Greeting)
	}
}

// Observe 接收一条聊天消息，登记其中的文件.
func (h *TrackerHandlers) Observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		var msg tracker.Message
		if err := c.ShouldBindJSON(&msg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rec, err := h.svc.Observe(c.Request.Context(), msg)

		switch {
		case err == nil:
			c.JSON(http.StatusCreated, types.ObserveResponse{Recorded: true, Record: &rec})
		case errors.Is(err, tracker.ErrNoMedia):
			c.JSON(http.StatusOK, types.ObserveResponse{Reason: types.ReasonNoMedia})
		case errors.Is(err, tracker.ErrDuplicate):
			c.JSON(http.StatusOK, types.ObserveResponse{Reason: types.ReasonDuplicate, Record: &rec})
		case errors.Is(err, tracker.ErrInvalidEvent):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			internalError(c, "observe", err)
		}
	}
}

// ListFiles 列出记录，可按 channel_id 过滤.
func (h *TrackerHandlers) ListFiles() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q types.ListFilesQuery
		if !bindQuery(c, &q) {
			return
		}

		files := h.svc.Records(q.ChannelID)
		c.JSON(http.StatusOK, types.ListFilesResponse{Files: files, Total: len(files)})
	}
}

// GetFile 按标识查询记录.
func (h *TrackerHandlers) GetFile() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := h.svc.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": tracker.ErrNotFound.Error()})
			return
		}

		c.JSON(http.StatusOK, rec)
	}
}

// DeleteByID 按标识删除记录.
func (h *TrackerHandlers) DeleteByID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.svc.DeleteByID(c.Request.Context(), c.Param("id"))
		h.writeDeleted(c, "delete by id", rec, err)
	}
}

// DeleteByName 按显示名称删除第一条匹配的记录.
func (h *TrackerHandlers) DeleteByName() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q types.DeleteByNameQuery
		if !bindQuery(c, &q) {
			return
		}

		rec, err := h.svc.DeleteByName(c.Request.Context(), q.Name)
		h.writeDeleted(c, "delete by name", rec, err)
	}
}

func (h *TrackerHandlers) writeDeleted(c *gin.Context, op string, rec tracker.FileRecord, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, types.DeleteResponse{Removed: rec, Message: "File removed."})
	case errors.Is(err, tracker.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		internalError(c, op, err)
	}
}

// Stats 统计报告，format=text 返回 Markdown 文本，format=json 同时返回快照.
func (h *TrackerHandlers) Stats() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q types.StatsQuery
		if !bindQuery(c, &q) {
			return
		}

		scope, err := tracker.ParseScope(q.Scope)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		text, err := h.svc.Report(c.Request.Context(), scope)
		if err != nil {
			internalError(c, "report", err)
			return
		}

		if q.Format == "json" {
			c.JSON(http.StatusOK, types.StatsResponse{Scope: scope, Text: text, Snapshot: h.svc.Snapshot()})
			return
		}

		c.String(http.StatusOK, text)
	}
}

// Reconcile 手动触发一次对账. 请求断开不会中止已开始的对账.
func (h *TrackerHandlers) Reconcile() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.reconcileTimeout)
		defer cancel()

		res, err := h.svc.Reconcile(ctx, service.TriggerManual)

		switch {
		case err == nil:
			c.JSON(http.StatusOK, res)
		case errors.Is(err, service.ErrReconcileRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrReconcileUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error(), "result": res})
		default:
			internalError(c, "reconcile", err)
		}
	}
}

// LastReconcile 最近一次对账.
func (h *TrackerHandlers) LastReconcile() gin.HandlerFunc {
	return func(c *gin.Context) {
		run, ok := h.svc.LastReconcile()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no reconciliation has run yet"})
			return
		}

		c.JSON(http.StatusOK, run)
	}
}

// PendingRemovals 等待进一步确认的文件.
func (h *TrackerHandlers) PendingRemovals() gin.HandlerFunc {
	return func(c *gin.Context) {
		pending, err := h.svc.PendingRemovals(c.Request.Context())
		if err != nil {
			internalError(c, "pending removals", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"pending": pending, "total": len(pending)})
	}
}

// ClearPendingRemovals 清空确认账本.
func (h *TrackerHandlers) ClearPendingRemovals() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.svc.ClearPendingRemovals(c.Request.Context()); err != nil {
			internalError(c, "clear pending removals", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Pending removals cleared."})
	}
}

// AuditLog 最近的审计事件.
func (h *TrackerHandlers) AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := types.AuditQuery{Limit: types.DefaultAuditLimit}
		if !bindQuery(c, &q) {
			return
		}

		events, err := h.svc.AuditLog(c.Request.Context(), q.Limit)

		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
		case errors.Is(err, service.ErrAuditDisabled):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			internalError(c, "audit log", err)
		}
	}
}
