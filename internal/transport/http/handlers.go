package transporthttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"example.com/homealarm/internal/config"
	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/logging"
	"example.com/homealarm/internal/metrics"
	"example.com/homealarm/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ready(ctx context.Context) error
}

// Subscription reports whether broker ingest is currently receiving messages.
type Subscription interface {
	Subscribed() bool
}

type ServerDeps struct {
	Cfg      config.Config
	Events   *service.EventService
	Motions  *service.MotionService
	Registry *domain.StatusRegistry
	Store    Pinger
	// Ingest is nil when MQTT ingest is disabled.
	Ingest   Subscription
	Metrics  *metrics.Recorder
	Log      *logrus.Entry
	Now      func() time.Time
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (d *ServerDeps) HandleReadyz(c *gin.Context) {
	if err := d.Store.Ready(c.Request.Context()); err != nil {
		WriteProblem(c, http.StatusServiceUnavailable, "not ready", "database not reachable", nil)
		return
	}
	if d.Ingest != nil && !d.Ingest.Subscribed() {
		WriteProblem(c, http.StatusServiceUnavailable, "not ready", "broker subscription not active", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// --- Motion ---

func (d *ServerDeps) HandleMotionCreate(c *gin.Context) {
	filename, ok := c.GetQuery("captionFilename")
	if !ok {
		WriteProblem(c, http.StatusBadRequest, "invalid parameters", "captionFilename is required", nil)
		return
	}
	m, err := d.Motions.RecordMotion(c.Request.Context(), filename)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (d *ServerDeps) HandleMotionList(c *gin.Context) {
	motions, err := d.Motions.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, motions)
}

func (d *ServerDeps) HandleMotionList2(c *gin.Context) {
	idEvent, err := strconv.ParseInt(c.Query("idEvent"), 10, 64)
	if err != nil {
		WriteProblem(c, http.StatusBadRequest, "invalid parameters", "idEvent must be an integer", nil)
		return
	}
	motions, err := d.Motions.ListRecent(c.Request.Context(), idEvent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, motions)
}

// --- Event reporting ---

func (d *ServerDeps) HandleEventState(c *gin.Context) {
	ev, err := d.Events.RecordState(c.Request.Context(), c.Param("status"))
	d.writeRecorded(c, ev, err)
}

func (d *ServerDeps) HandleEventAlarm(c *gin.Context) {
	ev, err := d.Events.RecordAlarm(c.Request.Context(), c.Param("status"))
	d.writeRecorded(c, ev, err)
}

func (d *ServerDeps) HandleEventSensor(c *gin.Context) {
	ev, err := d.Events.RecordSensor(c.Request.Context(), c.Param("emitterId"), c.Param("status"))
	d.writeRecorded(c, ev, err)
}

func (d *ServerDeps) writeRecorded(c *gin.Context, ev domain.Event, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// --- Event queries ---

func (d *ServerDeps) HandleEventList(c *gin.Context) {
	events, err := d.Events.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (d *ServerDeps) HandleEventListByType(c *gin.Context) {
	t, err := domain.ParseEventType(c.Param("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	events, err := d.Events.ListByType(c.Request.Context(), t)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (d *ServerDeps) HandleEventLast(c *gin.Context) {
	t, err := domain.ParseEventType(c.Param("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	ev, err := d.Events.LastByType(c.Request.Context(), t)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (d *ServerDeps) HandleEventStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, d.Registry.Definitions())
}

func (d *ServerDeps) HandleEventPage(c *gin.Context) {
	from, to, ok := d.window(c)
	if !ok {
		return
	}
	var req service.DataTablesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteProblem(c, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}
	res, err := d.Events.PageEvents(c.Request.Context(), req, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

const defaultWindow = 24 * time.Hour
const maxWindow = 90 * 24 * time.Hour // guardrail

func (d *ServerDeps) HandleEventStats(c *gin.Context) {
	from, to, ok := d.window(c)
	if !ok {
		return
	}

	var typ *domain.EventType
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		t, err := domain.ParseEventType(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		typ = &t
	}

	st, err := d.Events.Stats(c.Request.Context(), from, to, typ, c.Query("group_by") == "day")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":    from.Format(time.RFC3339),
		"to":      to.Format(time.RFC3339),
		"totals":  st.Totals,
		"buckets": st.Buckets,
	})
}

// parseTime accepts RFC 3339 or epoch seconds.
func parseTime(raw string) (time.Time, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("must be RFC 3339 or epoch seconds")
	}
	return t.UTC(), nil
}

// window resolves the from/to query parameters. Missing bounds default to the
// trailing 24h; ranges wider than 90 days are clipped at the start.
func (d *ServerDeps) window(c *gin.Context) (from, to time.Time, ok bool) {
	fromStr, toStr := c.Query("from"), c.Query("to")
	now := d.Now().UTC()
	var err error

	if toStr == "" {
		to = now
	} else if to, err = parseTime(toStr); err != nil {
		WriteProblem(c, http.StatusBadRequest, "invalid parameters", "to "+err.Error(), nil)
		return from, to, false
	}

	if fromStr == "" {
		from = to.Add(-defaultWindow)
	} else if from, err = parseTime(fromStr); err != nil {
		WriteProblem(c, http.StatusBadRequest, "invalid parameters", "from "+err.Error(), nil)
		return from, to, false
	}

	if to.Sub(from) > maxWindow {
		from = to.Add(-maxWindow)
	}
	return from, to, true
}

// --- Router ---

func (d *ServerDeps) Router() *gin.Engine {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(d.Log, d.Metrics))

	r.GET("/healthz", d.HandleHealthz)
	r.GET("/readyz", d.HandleReadyz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	auth := APIKeyAuth(d.Cfg.APIKeys)

	motion := r.Group("/motion", auth)
	motion.GET("/create", d.HandleMotionCreate)
	motion.GET("/list", d.HandleMotionList)
	motion.GET("/list2", d.HandleMotionList2)

	event := r.Group("/event", auth)
	event.GET("/state/:status", d.HandleEventState)
	event.GET("/alarm/:status", d.HandleEventAlarm)
	event.GET("/sensor/:emitterId/:status", d.HandleEventSensor)
	event.GET("/list", d.HandleEventList)
	event.GET("/list/:type", d.HandleEventListByType)
	event.GET("/last/:type", d.HandleEventLast)
	event.GET("/statuses", d.HandleEventStatuses)
	event.POST("/page", BodyLimit(d.Cfg.MaxBodyBytes), RequireJSON(), d.HandleEventPage)
	event.GET("/stats", RateLimitPerMinute(d.Cfg.RateLimitStatsPerMin, d.Now), d.HandleEventStats)

	return r
}
