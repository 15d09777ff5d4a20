package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/reddit-digest/app/tasks"
)

// AuthorCounter exposes the size of the author cache for the stats endpoint.
type AuthorCounter interface {
	Count() (int, error)
}

type Handler struct {
	store       *tasks.Store
	scheduler   tasks.TaskSchedulerInterface
	runner      tasks.Runner
	authors     AuthorCounter
	sourceCount int
}

func NewHandler(store *tasks.Store, scheduler tasks.TaskSchedulerInterface,
	runner tasks.Runner, authors AuthorCounter, sourceCount int) *Handler {
	return &Handler{
		store:       store,
		scheduler:   scheduler,
		runner:      runner,
		authors:     authors,
		sourceCount: sourceCount,
	}
}

// GetDigest serves the most recently generated digest as markdown.
func (h *Handler) GetDigest(c *gin.Context) {
	name, text, generatedAt, ok := h.store.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no digest generated yet"})
		return
	}

	c.Header("Content-Type", "text/markdown; charset=utf-8")
	c.Header("X-Digest-Name", name)
	c.Header("X-Generated-At", generatedAt.UTC().Format(time.RFC3339))
	c.Header("X-Digest-Bytes", strconv.Itoa(len(text)))

	c.String(http.StatusOK, text)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   h.sourceCount,
	}

	if _, _, generatedAt, ok := h.store.Latest(); ok {
		health["last_generated_at"] = generatedAt.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	sections, failures := h.store.Stats()

	stats := gin.H{
		"sources":  h.sourceCount,
		"sections": sections,
		"failures": failures,
	}

	if h.authors != nil {
		if count, err := h.authors.Count(); err == nil {
			stats["cached_authors"] = count
		}
	}

	c.JSON(http.StatusOK, stats)
}

// APIRefresh enqueues an immediate digest regeneration.
func (h *Handler) APIRefresh(c *gin.Context) {
	task := tasks.NewGenerateDigestTask(h.runner)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue refresh task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue refresh"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "refresh scheduled", "task_id": task.GetID()})
}
