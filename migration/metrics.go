// Package migration defines the two-phase metrics produced by bulk
// import: a fix-up phase (normalise + dupe-check each record) and an
// insert phase, each with its own processed/succeeded/failed counters,
// duration, and stable error-label vector.
package migration

// PhaseMetrics describes one phase (fix-up or insert) of a bulk
// import.
type PhaseMetrics struct {
	NumProcessed    uint64   `json:"num_processed"`
	NumSucceeded    uint64   `json:"num_succeeded"`
	NumFailed       uint64   `json:"num_failed"`
	TotalDurationMS int64    `json:"total_duration_ms"`
	Errors          []string `json:"errors"`
}

// Metrics is the result of a full bulk import: the two phases plus a
// rolled-up view satisfying the identities in spec.md §4.3:
//
//	fixup_phase.num_succeeded  == num_processed - num_failed_fixup
//	insert_phase.num_processed == fixup_phase.num_succeeded
//	num_failed                == num_failed_fixup + num_failed_insert
//	errors                     == fixup errors, then insert errors
type Metrics struct {
	FixupPhase  PhaseMetrics `json:"fixup_phase"`
	InsertPhase PhaseMetrics `json:"insert_phase"`

	NumProcessed    uint64   `json:"num_processed"`
	NumSucceeded    uint64   `json:"num_succeeded"`
	NumFailed       uint64   `json:"num_failed"`
	TotalDurationMS int64    `json:"total_duration_ms"`
	Errors          []string `json:"errors"`
}

// builder accumulates per-record results during an import and
// produces a finished Metrics at the end. It is not safe for
// concurrent use; import_multiple runs single-threaded within one
// transaction.
type builder struct {
	totalLogins uint64

	fixupErrors  []string
	insertErrors []string

	numFailedFixup  uint64
	numFailedInsert uint64

	fixupPhaseDurationMS  int64
	insertPhaseDurationMS int64
}

// NewBuilder starts a metrics builder for an import of n records.
func NewBuilder(n int) *Builder {
	return &Builder{b: &builder{totalLogins: uint64(n)}}
}

// Builder is the exported handle import_multiple uses to record
// per-record outcomes as it goes.
type Builder struct {
	b *builder
}

// RecordFixupFailure records that a record's fix-up/dupe-check phase
// failed with the given stable label.
func (bu *Builder) RecordFixupFailure(label string) {
	bu.b.fixupErrors = append(bu.b.fixupErrors, label)
	bu.b.numFailedFixup++
}

// RecordInsertFailure records that a record's insert phase failed with
// the given stable label.
func (bu *Builder) RecordInsertFailure(label string) {
	bu.b.insertErrors = append(bu.b.insertErrors, label)
	bu.b.numFailedInsert++
}

// SetFixupPhaseDuration records the elapsed time, in milliseconds, of
// the fix-up phase as observed up to the most recently processed
// record. This mirrors the upstream implementation's behaviour of
// overwriting the measurement on every iteration (spec.md §9's
// acknowledged imprecision: if the final record fails fix-up, the
// insert phase duration below is computed against this stale value).
func (bu *Builder) SetFixupPhaseDuration(ms int64) {
	bu.b.fixupPhaseDurationMS = ms
}

// Finish computes the rolled-up Metrics from the recorded phase data
// and the total elapsed time (ms) of the whole import.
func (bu *Builder) Finish(totalElapsedMS int64) Metrics {
	b := bu.b

	numPostFixup := b.totalLogins - b.numFailedFixup
	numFailed := b.numFailedFixup + b.numFailedInsert

	insertPhaseDurationMS := totalElapsedMS - b.fixupPhaseDurationMS
	if insertPhaseDurationMS < 0 {
		insertPhaseDurationMS = 0
	}

	allErrors := make([]string, 0, len(b.fixupErrors)+len(b.insertErrors))
	allErrors = append(allErrors, b.fixupErrors...)
	allErrors = append(allErrors, b.insertErrors...)

	return Metrics{
		FixupPhase: PhaseMetrics{
			NumProcessed:    b.totalLogins,
			NumSucceeded:    numPostFixup,
			NumFailed:       b.numFailedFixup,
			TotalDurationMS: b.fixupPhaseDurationMS,
			Errors:          b.fixupErrors,
		},
		InsertPhase: PhaseMetrics{
			NumProcessed:    numPostFixup,
			NumSucceeded:    numPostFixup - b.numFailedInsert,
			NumFailed:       b.numFailedInsert,
			TotalDurationMS: insertPhaseDurationMS,
			Errors:          b.insertErrors,
		},
		NumProcessed:    b.totalLogins,
		NumSucceeded:    b.totalLogins - numFailed,
		NumFailed:       numFailed,
		TotalDurationMS: b.fixupPhaseDurationMS + insertPhaseDurationMS,
		Errors:          allErrors,
	}
}
