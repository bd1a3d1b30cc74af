// Package simulate drives a running cuerank service with a generated league
// and checks the standings it serves against a local aggregation.
package simulate

import "time"

// Config holds the settings of one simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Players     int           // Size of the player pool
	Clubs       int           // Number of clubs hosting tournaments
	Seasons     int           // Number of seasons tournaments are spread over
	Tournaments int           // Number of tournaments to finalize
	MaxField    int           // Largest tournament field
	Workers     int           // Concurrent finalization requests
	Timeout     time.Duration // HTTP request timeout
	Seed        int64         // Generator seed; zero picks one from the clock
	OutputFile  string        // Where the generated league is written; empty skips
	Verbose     bool
}

// Stats summarizes a run.
type Stats struct {
	TournamentsGenerated int
	Finalized            int
	Duplicates           int
	Failed               int
	ScopesVerified       int
	RowsVerified         int
	Mismatches           int
	StartTime            time.Time
	Duration             time.Duration
}
