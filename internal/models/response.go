package models

// Response is the closed set of render variants produced by the
// reservation service. The Slack formatter translates each variant into
// wire JSON; the service itself never touches platform payloads.
type Response interface {
	isResponse()
}

// PlainText is a single markdown message.
type PlainText struct {
	Text string
}

// HelpList is an intro line followed by a headed, bulleted list of
// choices.
type HelpList struct {
	Intro   string
	Heading string
	Items   []string
}

// ActionLine is one fan-out result: a per-key success or failure.
type ActionLine struct {
	Success bool
	Message string
}

// Fanout aggregates per-key results of a reserve or unreserve that spanned
// multiple services. Partial success is expected and reported as-is.
type Fanout struct {
	Lines     []ActionLine
	Succeeded int
	Total     int
}

// ServiceStatus is one row of a status table.
type ServiceStatus struct {
	Service string
	Label   string
	Icon    string
	Record  *ReservationRecord
}

// EnvironmentStatus is one section of a status report.
type EnvironmentStatus struct {
	Name     string
	Aliases  []string
	Services []ServiceStatus
}

// StatusReport is the full status table, one section per environment.
type StatusReport struct {
	Environments []EnvironmentStatus
}

func (PlainText) isResponse()    {}
func (HelpList) isResponse()     {}
func (Fanout) isResponse()       {}
func (StatusReport) isResponse() {}
