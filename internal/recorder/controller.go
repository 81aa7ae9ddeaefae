package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/yegors/micscribe/internal/capture"
	"github.com/yegors/micscribe/internal/channel"
	"github.com/yegors/micscribe/pkg/logger"
)

// User-facing messages raised through Presenter.Alert
const (
	AlertStartFailed    = "Failed to start recording. Please check your microphone permissions."
	AlertBusy           = "A transcription is still in progress. Please wait for it to finish."
	AlertSendFailed     = "Failed to send audio to the transcription service. Please record again."
	AlertDeviceLost     = "The microphone stopped unexpectedly. Sending what was recorded."
	AlertServiceFailed  = "The transcription service could not transcribe the recording."
	AlertConnectionLost = "Lost connection to the transcription service."
	AlertResultTimeout  = "No transcription received in time. Please record again."
	AlertCopied         = "Transcription copied to clipboard!"
)

var (
	// ErrStopped is returned by requests made after Run returned
	ErrStopped = errors.New("controller stopped")
	// ErrExportDisabled is returned by Copy and Download while export controls are disabled
	ErrExportDisabled = errors.New("export controls are disabled")
)

// Presenter renders controller state. Calls are made from the controller loop only.
type Presenter interface {
	SetStatus(state State)
	AppendTranscript(line string)
	ClearTranscript()
	SetExportEnabled(enabled bool)
	Alert(message string)
}

// Capture is the microphone side of a take
type Capture interface {
	Acquire(ctx context.Context) error
	Release() error
	Start() error
	Stop() error
}

// Transport sends one complete take to the transcription service
type Transport interface {
	SendAudio(payload []byte) error
}

// Exporter copies or saves the transcript
type Exporter interface {
	Copy(text string) error
	Download(text string, now time.Time) (string, error)
}

// Options configures a Controller
type Options struct {
	// ResultTimeout returns to Idle when no result arrives in time; 0 waits forever
	ResultTimeout time.Duration
}

// Snapshot is a consistent view of controller state
type Snapshot struct {
	State         State  `json:"state"`
	Acquiring     bool   `json:"acquiring"`
	ExportEnabled bool   `json:"export_enabled"`
	Transcript    string `json:"-"`
	Entries       int    `json:"entries"`
}

// Controller is the recording state machine. All state is owned by the
// goroutine running Run; every other method posts an event to it.
type Controller struct {
	options   Options
	presenter Presenter
	exporter  Exporter
	capture   Capture
	transport Transport
	now       func() time.Time
	logger    *logger.Logger

	events  chan event
	stopped chan struct{}

	// loop-owned state
	ctx            context.Context
	state          State
	acquiring      bool
	take           *capture.Take
	sending        string
	lostDuringSend bool
	pendingTake    string
	resultTimer    *time.Timer
	transcript     Transcript
	exportEnabled  bool
}

// New creates a controller. Attach must be called before Run.
func New(options Options, presenter Presenter, exporter Exporter, logger *logger.Logger) *Controller {
	return &Controller{
		options:   options,
		presenter: presenter,
		exporter:  exporter,
		now:       time.Now,
		logger:    logger.Named("recorder"),
		events:    make(chan event, 256),
		stopped:   make(chan struct{}),
	}
}

// Attach wires the capture session and the transport
func (c *Controller) Attach(capture Capture, transport Transport) {
	c.capture = capture
	c.transport = transport
}

// CaptureHandlers returns the callbacks a capture session delivers into the loop
func (c *Controller) CaptureHandlers() capture.Handlers {
	return capture.Handlers{
		OnChunk:    func(chunk capture.Chunk) { c.post(chunkEvent{chunk: chunk}) },
		OnFinalize: func(info capture.Finalized) { c.post(finalizedEvent{info: info}) },
	}
}

// ChannelHandler returns the callbacks a channel delivers into the loop
func (c *Controller) ChannelHandler() channel.Handler {
	return channel.Handler{
		OnResult:     func(text string) { c.post(resultEvent{text: text}) },
		OnFailure:    func(err error) { c.post(failureEvent{err: err}) },
		OnDisconnect: func(err error) { c.post(disconnectEvent{err: err}) },
	}
}

// Toggle starts or stops recording, as the record button does
func (c *Controller) Toggle() error {
	if !c.post(toggleEvent{}) {
		return ErrStopped
	}
	return nil
}

// Clear empties the transcript in any state
func (c *Controller) Clear() error {
	if !c.post(clearEvent{}) {
		return ErrStopped
	}
	return nil
}

// Copy places the transcript on the clipboard
func (c *Controller) Copy(ctx context.Context) error {
	reply := make(chan error, 1)
	if !c.post(copyEvent{reply: reply}) {
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Download saves the transcript to a timestamped file and returns its path
func (c *Controller) Download(ctx context.Context) (string, error) {
	reply := make(chan downloadReply, 1)
	if !c.post(downloadEvent{reply: reply}) {
		return "", ErrStopped
	}
	select {
	case r := <-reply:
		return r.path, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Snapshot returns the current state
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if !c.post(snapshotEvent{reply: reply}) {
		return Snapshot{}, ErrStopped
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// post delivers ev to the loop, reporting false once the loop has stopped
func (c *Controller) post(ev event) bool {
	select {
	case <-c.stopped:
		return false
	default:
	}

	select {
	case c.events <- ev:
		return true
	case <-c.stopped:
		return false
	}
}

// Run processes events until ctx is done
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer close(c.stopped)

	c.presenter.SetStatus(c.state)
	c.presenter.SetExportEnabled(false)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev event) {
	switch ev := ev.(type) {
	case toggleEvent:
		c.handleToggle()
	case deviceReadyEvent:
		c.handleDeviceReady(ev.err)
	case chunkEvent:
		c.handleChunk(ev.chunk)
	case finalizedEvent:
		c.handleFinalized(ev.info)
	case sendDoneEvent:
		c.handleSendDone(ev.takeID, ev.err)
	case resultEvent:
		c.handleResult(ev.text)
	case failureEvent:
		c.handleFailure(ev.err)
	case disconnectEvent:
		c.handleDisconnect(ev.err)
	case resultTimeoutEvent:
		c.handleResultTimeout(ev.takeID)
	case clearEvent:
		c.handleClear()
	case copyEvent:
		ev.reply <- c.handleCopy()
	case downloadEvent:
		path, err := c.handleDownload()
		ev.reply <- downloadReply{path: path, err: err}
	case snapshotEvent:
		ev.reply <- Snapshot{
			State:         c.state,
			Acquiring:     c.acquiring,
			ExportEnabled: c.exportEnabled,
			Transcript:    c.transcript.String(),
			Entries:       len(c.transcript.entries),
		}
	default:
		c.logger.Error("Unhandled event", logger.Any("event", ev))
	}
}

func (c *Controller) setState(state State) {
	if c.state == state {
		return
	}
	c.logger.Info("State changed",
		logger.Stringer("from", c.state),
		logger.Stringer("to", state))
	c.state = state
	c.presenter.SetStatus(state)
}

func (c *Controller) setExportEnabled(enabled bool) {
	c.exportEnabled = enabled
	c.presenter.SetExportEnabled(enabled)
}

func (c *Controller) handleToggle() {
	switch c.state {
	case Idle:
		if c.acquiring {
			c.logger.Debug("Ignoring toggle while the microphone is being acquired")
			return
		}
		c.acquiring = true
		go c.acquire(c.ctx)
	case Recording:
		c.stopRecording()
	case Transcribing:
		c.logger.Warn("Ignoring toggle while a transcription is outstanding",
			logger.String("take_id", c.pendingTake))
		c.presenter.Alert(AlertBusy)
	}
}

// acquire runs off the loop because acquisition may wait on a permission prompt
func (c *Controller) acquire(ctx context.Context) {
	err := c.capture.Acquire(ctx)
	if !c.post(deviceReadyEvent{err: err}) && err == nil {
		// Nobody is left to start or release the device
		c.capture.Release()
	}
}

func (c *Controller) handleDeviceReady(err error) {
	c.acquiring = false

	if err != nil {
		c.logger.Warn("Failed to acquire microphone", logger.Error(err))
		c.presenter.Alert(AlertStartFailed)
		return
	}

	if err := c.capture.Start(); err != nil {
		c.logger.Warn("Failed to start capture", logger.Error(err))
		if relErr := c.capture.Release(); relErr != nil {
			c.logger.Warn("Failed to release microphone", logger.Error(relErr))
		}
		c.presenter.Alert(AlertStartFailed)
		return
	}

	c.take = capture.NewTake(c.now())
	c.logger.Info("Recording started", logger.String("take_id", c.take.ID))
	c.setState(Recording)
}

func (c *Controller) stopRecording() {
	log := c.logger
	if c.take != nil {
		log = log.WithTake(c.take.ID)
	}

	if err := c.capture.Stop(); err != nil {
		// Capture already ended on its own; its finalization is on the way
		log.Warn("Failed to stop capture", logger.Error(err))
	}

	log.Info("Recording stopped")
	c.setState(Transcribing)
}

func (c *Controller) handleChunk(chunk capture.Chunk) {
	if c.take == nil {
		c.logger.Warn("Dropping chunk outside of a take", logger.Int("seq", chunk.Seq))
		return
	}
	if err := c.take.Append(chunk); err != nil {
		c.logger.WithTake(c.take.ID).Warn("Dropping chunk", logger.Error(err))
	}
}

func (c *Controller) handleFinalized(info capture.Finalized) {
	take := c.take
	c.take = nil

	if take == nil {
		c.logger.Warn("Finalization without a take")
		return
	}
	log := c.logger.WithTake(take.ID)

	if info.Err != nil && c.state == Recording {
		log.Warn("Capture ended unexpectedly", logger.Error(info.Err))
		c.presenter.Alert(AlertDeviceLost)
		c.setState(Transcribing)
	}

	if c.state != Transcribing {
		log.Warn("Discarding take finalized outside of transcription", logger.Stringer("state", c.state))
		return
	}

	payload := take.Payload()
	log.Info("Sending take",
		logger.Int("chunks", take.Len()),
		logger.Int("bytes", len(payload)),
		logger.Duration("length", c.now().Sub(take.StartedAt)))

	// Sending may redial the service, so it runs off the loop
	c.sending = take.ID
	go func(takeID string) {
		err := c.transport.SendAudio(payload)
		c.post(sendDoneEvent{takeID: takeID, err: err})
	}(take.ID)
}

// handleSendDone ignores sends that finished after the take was already
// resolved by a result
func (c *Controller) handleSendDone(takeID string, err error) {
	if c.sending != takeID {
		return
	}
	c.sending = ""
	log := c.logger.WithTake(takeID)

	if err != nil {
		log.Warn("Failed to send take, dropping it", logger.Error(err))
		c.presenter.Alert(AlertSendFailed)
		c.finishTranscription()
		return
	}

	if c.lostDuringSend {
		log.Warn("Connection dropped while the take was in flight")
		c.finishTranscription()
		return
	}

	log.Debug("Take sent")
	c.pendingTake = takeID
	if c.options.ResultTimeout > 0 {
		c.resultTimer = time.AfterFunc(c.options.ResultTimeout, func() {
			c.post(resultTimeoutEvent{takeID: takeID})
		})
	}
}

func (c *Controller) finishTranscription() {
	if c.resultTimer != nil {
		c.resultTimer.Stop()
		c.resultTimer = nil
	}
	c.pendingTake = ""
	c.sending = ""
	c.lostDuringSend = false
	c.setState(Idle)
}

func (c *Controller) handleResult(text string) {
	log := c.logger
	if c.pendingTake != "" {
		log = log.WithTake(c.pendingTake)
	}
	log.Info("Received transcription", logger.Int("length", len(text)))

	if text != "" {
		line := text + LineTerminator
		c.transcript.Append(line)
		c.presenter.AppendTranscript(line)
	}
	// Export follows the latest result alone, not the buffer as a whole
	c.setExportEnabled(text != "")

	if c.state == Transcribing {
		c.finishTranscription()
	} else {
		log.Warn("Result arrived outside of transcription", logger.Stringer("state", c.state))
	}
}

func (c *Controller) handleFailure(err error) {
	c.logger.Warn("Transcription service reported a failure", logger.Error(err))
	if c.state == Transcribing && c.take == nil {
		c.presenter.Alert(AlertServiceFailed)
		c.finishTranscription()
	}
}

func (c *Controller) handleDisconnect(err error) {
	c.logger.Warn("Transcription channel disconnected", logger.Error(err))
	c.presenter.Alert(AlertConnectionLost)
	if c.state != Transcribing || c.take != nil {
		return
	}
	// A send in flight redials on its own; its outcome decides the take
	if c.sending != "" {
		c.lostDuringSend = true
		return
	}
	c.finishTranscription()
}

func (c *Controller) handleResultTimeout(takeID string) {
	if c.state != Transcribing || c.pendingTake != takeID {
		return
	}
	c.logger.WithTake(takeID).Warn("Timed out waiting for transcription",
		logger.Duration("timeout", c.options.ResultTimeout))
	c.presenter.Alert(AlertResultTimeout)
	c.finishTranscription()
}

func (c *Controller) handleClear() {
	c.transcript.Clear()
	c.presenter.ClearTranscript()
	c.setExportEnabled(false)
	c.logger.Debug("Transcript cleared", logger.Stringer("state", c.state))
}

func (c *Controller) handleCopy() error {
	if !c.exportEnabled {
		return ErrExportDisabled
	}
	if err := c.exporter.Copy(c.transcript.String()); err != nil {
		c.logger.Warn("Failed to copy transcript", logger.Error(err))
		return err
	}
	c.presenter.Alert(AlertCopied)
	return nil
}

func (c *Controller) handleDownload() (string, error) {
	if !c.exportEnabled {
		return "", ErrExportDisabled
	}
	path, err := c.exporter.Download(c.transcript.String(), c.now())
	if err != nil {
		c.logger.Warn("Failed to download transcript", logger.Error(err))
		return "", err
	}
	c.logger.Info("Transcript saved", logger.String("path", path))
	return path, nil
}

// shutdown releases the microphone if a take is in progress
func (c *Controller) shutdown() {
	if c.state == Recording {
		if err := c.capture.Stop(); err != nil {
			c.logger.Warn("Failed to stop capture on shutdown", logger.Error(err))
		}
	}
	if c.resultTimer != nil {
		c.resultTimer.Stop()
	}
	c.logger.Info("Recorder stopped", logger.Stringer("state", c.state))
}
