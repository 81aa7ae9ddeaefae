package presenter

import (
	"strings"
	"sync"
	"time"

	"github.com/yegors/micscribe/internal/recorder"
)

// ViewState is what a remote page needs to render the recorder
type ViewState struct {
	Status        recorder.State `json:"status"`
	Transcript    string         `json:"transcript"`
	ExportEnabled bool           `json:"export_enabled"`
	LastAlert     string         `json:"last_alert,omitempty"`
	LastAlertAt   *time.Time     `json:"last_alert_at,omitempty"`
}

// View keeps the rendered state for readers on other goroutines
type View struct {
	mu         sync.RWMutex
	status     recorder.State
	transcript strings.Builder
	export     bool
	alert      string
	alertAt    time.Time
	now        func() time.Time
}

// NewView creates an empty view
func NewView() *View {
	return &View{now: time.Now}
}

// SetStatus records the recorder state
func (v *View) SetStatus(state recorder.State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = state
}

// AppendTranscript adds line to the rendered transcript
func (v *View) AppendTranscript(line string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.transcript.WriteString(line)
}

// ClearTranscript empties the rendered transcript
func (v *View) ClearTranscript() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.transcript.Reset()
}

// SetExportEnabled records whether export controls are usable
func (v *View) SetExportEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.export = enabled
}

// Alert keeps message as the latest alert
func (v *View) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alert = message
	v.alertAt = v.now()
}

// State returns a copy of the current view
func (v *View) State() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()

	state := ViewState{
		Status:        v.status,
		Transcript:    v.transcript.String(),
		ExportEnabled: v.export,
		LastAlert:     v.alert,
	}
	if !v.alertAt.IsZero() {
		at := v.alertAt
		state.LastAlertAt = &at
	}
	return state
}
