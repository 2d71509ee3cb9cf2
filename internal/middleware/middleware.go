package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/metrics"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

type Options struct {
	// AuthToken is the expected bearer token. Empty disables authentication.
	AuthToken      string
	RatePerSecond  float64
	BurstPerSecond int
}

// Chain runs trace injection, bearer auth and per-IP rate limiting in front of a handler.
type Chain struct {
	authToken string
	limiter   *IPRateLimiter
	logger    *logger_i.Logger
}

func New(opts Options) *Chain {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = config.RATE_LIMIT_PER_SECOND
	}
	if opts.BurstPerSecond <= 0 {
		opts.BurstPerSecond = config.BURST_RATE_LIMIT_PER_SECOND
	}
	c := &Chain{
		authToken: opts.AuthToken,
		limiter:   NewIPRateLimiter(rate.Limit(opts.RatePerSecond), opts.BurstPerSecond),
		logger:    logger_i.NewLogger("middleware"),
	}
	if c.authToken == "" {
		c.logger.Warn("AUTH_TOKEN not set, requests are not authenticated")
	}
	return c
}

func (c *Chain) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := c.processRequest(requestResponseStruct{req: r, writer: rec})

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(routePattern(re.req), strconv.Itoa(rec.Status)).Inc()
	}
}

func (c *Chain) processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = c.logger
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re
	}
	re.logger.Info("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	steps := []func(requestResponseStruct) requestResponseStruct{c.authenticate, c.rateLimiter}
	for _, step := range steps {
		re = step(re)
		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return re
		}
	}
	return re
}
