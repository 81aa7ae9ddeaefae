package presenter

import "github.com/yegors/micscribe/internal/recorder"

// Multi forwards every call to each presenter in order
type Multi []recorder.Presenter

// SetStatus forwards the state to every presenter
func (m Multi) SetStatus(state recorder.State) {
	for _, p := range m {
		p.SetStatus(state)
	}
}

// AppendTranscript forwards line to every presenter
func (m Multi) AppendTranscript(line string) {
	for _, p := range m {
		p.AppendTranscript(line)
	}
}

// ClearTranscript clears every presenter
func (m Multi) ClearTranscript() {
	for _, p := range m {
		p.ClearTranscript()
	}
}

// SetExportEnabled forwards the export toggle
func (m Multi) SetExportEnabled(enabled bool) {
	for _, p := range m {
		p.SetExportEnabled(enabled)
	}
}

// Alert forwards message to every presenter
func (m Multi) Alert(message string) {
	for _, p := range m {
		p.Alert(message)
	}
}

var (
	_ recorder.Presenter = Multi(nil)
	_ recorder.Presenter = (*View)(nil)
	_ recorder.Presenter = (*Console)(nil)
)
