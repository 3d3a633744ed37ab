// Package metrics holds the prometheus collectors for core operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttendanceMarks counts attendance upserts by outcome.
	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_attendance_marks_total",
		Help: "Attendance marks applied, by outcome.",
	}, []string{"outcome"})

	// PointsBatches counts bulk point updates by outcome.
	PointsBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_points_batches_total",
		Help: "Bulk point batches applied, by outcome.",
	}, []string{"outcome"})

	// Logins counts login attempts by outcome.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_logins_total",
		Help: "Login attempts, by outcome.",
	}, []string{"outcome"})

	// LockWrites counts lock flips by outcome.
	LockWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_lock_writes_total",
		Help: "Lock state writes, by outcome.",
	}, []string{"outcome"})
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
