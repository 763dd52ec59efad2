package httpd

import "time"

// serverStats tracks request handling counters. Plain fields: the
// counters belong to the polling task alone, like everything else in
// the Server.
type serverStats struct {
	requests     uint32 // frames handed to a handler or the 404 responder
	dropped      uint32 // frames abandoned before dispatch
	responses    uint32 // Respond calls that passed validation
	succeeded    uint32 // responses with status < 400
	failed       uint32 // responses with status >= 400
	sendErrors   uint32 // send handshakes that did not complete
	totalLatency time.Duration
}

// StatsSnapshot is a plain-value copy of the server counters.
type StatsSnapshot struct {
	Requests     uint32
	Dropped      uint32
	Responses    uint32
	Succeeded    uint32
	Failed       uint32
	SendErrors   uint32
	TotalLatency time.Duration
	AvgLatency   time.Duration
}

// Stats returns a point-in-time copy of the server counters.
func (s *Server) Stats() StatsSnapshot {
	snap := StatsSnapshot{
		Requests:     s.stats.requests,
		Dropped:      s.stats.dropped,
		Responses:    s.stats.responses,
		Succeeded:    s.stats.succeeded,
		Failed:       s.stats.failed,
		SendErrors:   s.stats.sendErrors,
		TotalLatency: s.stats.totalLatency,
	}
	if snap.Responses > 0 {
		snap.AvgLatency = snap.TotalLatency / time.Duration(snap.Responses)
	}
	return snap
}

// ResetStats zeroes all counters.
func (s *Server) ResetStats() {
	s.stats = serverStats{}
}
