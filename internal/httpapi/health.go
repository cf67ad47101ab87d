package httpapi

import (
	"errors"

	"github.com/heptiolabs/healthcheck"
)

// goroutineLimit fails liveness when something leaks goroutines badly.
const goroutineLimit = 10000

var errNotInitialized = errors.New("skills are still loading")

func newHealthHandler(svc Service) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(goroutineLimit))
	h.AddReadinessCheck("skills-initialized", func() error {
		if svc.Ready() {
			return nil
		}
		return errNotInitialized
	})
	return h
}
