package controller

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gwos/walltime/config"
	wterr "github.com/gwos/walltime/errors"
	"github.com/gwos/walltime/sdk/systime"
)

// InstantResponse renders an instant both ways
type InstantResponse struct {
	Instant systime.Instant `json:"instant"`
	ISO     string          `json:"iso"`
}

// DurationResponse carries a duration in milliseconds
type DurationResponse struct {
	Duration int64  `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// ReadingResponse renders the latest watchdog reading
type ReadingResponse struct {
	At          systime.Instant `json:"at"`
	Step        int64           `json:"step"`
	Regressed   bool            `json:"regressed"`
	Regressions uint64          `json:"regressions"`
}

func newInstantResponse(t systime.Instant) InstantResponse {
	return InstantResponse{Instant: t, ISO: t.String()}
}

func (ctrl *Controller) registerAPI1(router *gin.Engine) {
	apiV1Group := router.Group("/api/v1")
	apiV1Group.Use(ctrl.validatePin)
	apiV1Group.GET("/now", ctrl.now)
	apiV1Group.GET("/since/:earlier", ctrl.since)
	apiV1Group.GET("/add/:at/:offset", ctrl.shift(systime.Instant.CheckedAdd))
	apiV1Group.GET("/sub/:at/:offset", ctrl.shift(systime.Instant.CheckedSub))
	apiV1Group.GET("/convert/:value", ctrl.convert)
	apiV1Group.GET("/watchdog", ctrl.lastReading)
	apiV1Group.GET("/version", ctrl.version)
}

func (ctrl *Controller) now(c *gin.Context) {
	c.JSON(http.StatusOK, newInstantResponse(ctrl.clock.Now()))
}

// since reports the duration from :earlier to ?later, which defaults to now.
// A later :earlier is answered with 409 and the size of the discrepancy.
func (ctrl *Controller) since(c *gin.Context) {
	earlier, err := parseInstant(c.Param("earlier"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	later := ctrl.clock.Now()
	if s, ok := c.GetQuery("later"); ok {
		if later, err = parseInstant(s); err != nil {
			abortWithError(c, err)
			return
		}
	}

	if !later.WithinDurationRange(earlier) {
		abortWithError(c, fmt.Errorf("%w: distance between %v and %v exceeds duration range",
			wterr.ErrUnrepresentable, earlier.UnixMilli(), later.UnixMilli()))
		return
	}
	d, err := later.DurationSince(earlier)
	var oe *systime.OrderingError
	if errors.As(err, &oe) {
		c.JSON(http.StatusConflict, DurationResponse{Duration: oe.Duration().Milliseconds(), Error: oe.Error()})
		return
	}
	c.JSON(http.StatusOK, DurationResponse{Duration: d.Milliseconds()})
}

func (ctrl *Controller) shift(fn func(systime.Instant, time.Duration) (systime.Instant, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		at, err := parseInstant(c.Param("at"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		offset, err := time.ParseDuration(c.Param("offset"))
		if err != nil {
			abortWithError(c, fmt.Errorf("%w: %v", wterr.ErrInvalidArgument, err))
			return
		}
		t, ok := fn(at, offset)
		if !ok {
			abortWithError(c, fmt.Errorf("%w: %v by %v", wterr.ErrUnrepresentable, at.UnixMilli(), offset))
			return
		}
		c.JSON(http.StatusOK, newInstantResponse(t))
	}
}

func (ctrl *Controller) convert(c *gin.Context) {
	t, err := parseInstant(c.Param("value"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newInstantResponse(t))
}

func (ctrl *Controller) lastReading(c *gin.Context) {
	if ctrl.watchdog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "watchdog is disabled"})
		return
	}
	r, ok := ctrl.watchdog.Last()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no samples yet"})
		return
	}
	c.JSON(http.StatusOK, ReadingResponse{
		At:          r.At,
		Step:        r.Step.Milliseconds(),
		Regressed:   r.Regressed,
		Regressions: ctrl.watchdog.Regressions(),
	})
}

func (ctrl *Controller) version(c *gin.Context) {
	c.JSON(http.StatusOK, config.GetBuildInfo())
}

func parseInstant(s string) (systime.Instant, error) {
	t, err := systime.Parse(s)
	if err != nil {
		return t, fmt.Errorf("%w: %v", wterr.ErrInvalidArgument, err)
	}
	return t, nil
}

func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, wterr.ErrUnrepresentable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, wterr.ErrInvalidArgument):
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
