package notify

// SendOutcome is the terminal result of one message on one channel,
// after any in-run retries.
type SendOutcome struct {
	ChannelID   string
	ChannelType string
	Sent        bool
	ReceiptID   string
	Attempts    int
	Error       string
}

// RecordStatus summarizes how one tender fared across all channels.
type RecordStatus int

const (
	// StatusDelivered means every channel accepted the message.
	StatusDelivered RecordStatus = iota
	// StatusPartial means at least one channel accepted and at least one failed.
	StatusPartial
	// StatusFailed means no channel accepted the message.
	StatusFailed
)

func (s RecordStatus) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RecordReport holds the per-channel outcomes for one tender.
type RecordReport struct {
	Identity string
	Outcomes []SendOutcome
}

// Status derives the record status from the outcomes.
func (r RecordReport) Status() RecordStatus {
	sent, failed := 0, 0
	for _, o := range r.Outcomes {
		if o.Sent {
			sent++
		} else {
			failed++
		}
	}
	switch {
	case failed == 0:
		return StatusDelivered
	case sent == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// ChannelStats aggregates sent/failed counts for one channel across a batch.
type ChannelStats struct {
	Sent   int
	Failed int
}

// DispatchReport aggregates every per-record, per-channel outcome of one
// dispatch pass. Nothing is hidden: the orchestrator inspects it to build
// the run summary.
type DispatchReport struct {
	Records []RecordReport
}

// PerChannel returns sent/failed counts keyed by channel id.
func (d *DispatchReport) PerChannel() map[string]ChannelStats {
	stats := make(map[string]ChannelStats)
	for _, rec := range d.Records {
		for _, o := range rec.Outcomes {
			s := stats[o.ChannelID]
			if o.Sent {
				s.Sent++
			} else {
				s.Failed++
			}
			stats[o.ChannelID] = s
		}
	}
	return stats
}

// Counts returns how many records were fully delivered, partially
// delivered, and fully failed.
func (d *DispatchReport) Counts() (delivered, partial, failed int) {
	for _, rec := range d.Records {
		switch rec.Status() {
		case StatusDelivered:
			delivered++
		case StatusPartial:
			partial++
		default:
			failed++
		}
	}
	return delivered, partial, failed
}
