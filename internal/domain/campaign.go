package domain

// Campaign is an imported bulk-send definition: one text sent to every
// target in order.
type Campaign struct {
	Name    string
	Message string
	Targets []string
}
