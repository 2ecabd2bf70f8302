// Package analysis runs the submission workflow: choosing a PDF or raw text,
// picking a prompt and model, submitting once at a time, and keeping the
// resulting history.
package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"docwise-client/internal/gateway"
	"docwise-client/internal/shared/clipboard"
	"docwise-client/internal/shared/metrics"
	"docwise-client/internal/shared/storage/object"
	"docwise-client/internal/shared/telemetry"
)

// FallbackNotice is shown when a failed submission carries no server detail.
const FallbackNotice = "Analysis failed. Please try again."

// Analyzer is the slice of the gateway the orchestrator calls.
type Analyzer interface {
	AnalyzeUpload(ctx context.Context, fileName string, file io.Reader, opts gateway.AnalysisOptions) (gateway.Analysis, error)
	AnalyzeText(ctx context.Context, in gateway.TextAnalysis) (gateway.Analysis, error)
	ListAnalyses(ctx context.Context) ([]gateway.Analysis, error)
	DownloadAnalysis(ctx context.Context, id string) (gateway.Download, error)
}

// Options configures an Orchestrator.
type Options struct {
	API          Analyzer
	Clipboard    clipboard.Writer
	Downloads    object.ObjectStore
	DefaultModel string
}

// Snapshot is what the view layer renders.
type Snapshot struct {
	State    State
	Mode     Mode
	File     *File
	Text     string
	PromptID string
	ModelID  string
	// Notice is the user-facing message from the last failed submission.
	Notice string
	// Last is the most recent successful result.
	Last *gateway.Analysis
}

// request is the payload captured at submit time.
type request struct {
	mode     Mode
	file     File
	text     string
	promptID string
	modelID  string
}

// Orchestrator is the submission state machine. It is safe for concurrent
// use; its lock is never held across a network call.
type Orchestrator struct {
	api       Analyzer
	clip      clipboard.Writer
	downloads object.ObjectStore

	mu           sync.Mutex
	state        State
	mode         Mode
	file         *File
	text         string
	promptID     string
	modelID      string
	defaultModel string
	notice       string
	last         *gateway.Analysis
	history      []gateway.Analysis
	// seq identifies the current submission; Close advances it so a late
	// response is recognised as stale.
	seq uint64
	// inputRev advances on every file or text edit.
	inputRev uint64
	// historyRev counts results prepended to history.
	historyRev uint64
	subs       map[int]func(Snapshot)
	nextSubID  int
}

// NewOrchestrator returns an Orchestrator in StateIdle and ModeUpload.
func NewOrchestrator(opts Options) *Orchestrator {
	model := strings.TrimSpace(opts.DefaultModel)
	if model == "" {
		model = gateway.ModelGPT5
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = &clipboard.Memory{}
	}
	return &Orchestrator{
		api:          opts.API,
		clip:         clip,
		downloads:    opts.Downloads,
		state:        StateIdle,
		mode:         ModeUpload,
		modelID:      model,
		defaultModel: model,
		subs:         make(map[int]func(Snapshot)),
	}
}

// Current returns the present snapshot.
func (o *Orchestrator) Current() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// History returns cached results, newest first.
func (o *Orchestrator) History() []gateway.Analysis {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]gateway.Analysis(nil), o.history...)
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned func unregisters it.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) func() {
	o.mu.Lock()
	id := o.nextSubID
	o.nextSubID++
	o.subs[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Open starts a new request.
func (o *Orchestrator) Open() {
	o.edit(func() error { return nil })
}

// SetMode switches the input source and clears both file and text, even when
// mode is unchanged.
func (o *Orchestrator) SetMode(mode Mode) error {
	if mode != ModeUpload && mode != ModeText {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
	return o.edit(func() error {
		o.mode = mode
		o.file = nil
		o.text = ""
		o.inputRev++
		return nil
	})
}

// SelectFile makes f the upload candidate, replacing any previous one. Names
// must end in .pdf (any case) and the mode must be ModeUpload.
func (o *Orchestrator) SelectFile(f File) error {
	return o.edit(func() error {
		if o.mode != ModeUpload {
			return invalid("file", "Switch to file upload to select a PDF")
		}
		if !hasPDFSuffix(f.Name) {
			return invalid("file", "Please select a PDF file")
		}
		o.file = &f
		o.inputRev++
		return nil
	})
}

// SetTextBody stores text verbatim; it is validated only on submit. Non-empty
// text requires ModeText.
func (o *Orchestrator) SetTextBody(text string) error {
	return o.edit(func() error {
		if o.mode != ModeText && text != "" {
			return invalid("text", "Switch to text input to enter text")
		}
		o.text = text
		o.inputRev++
		return nil
	})
}

func (o *Orchestrator) SelectPrompt(id string) error {
	return o.edit(func() error {
		o.promptID = strings.TrimSpace(id)
		return nil
	})
}

// SelectModel picks the model; an empty id restores the default.
func (o *Orchestrator) SelectModel(id string) error {
	return o.edit(func() error {
		id = strings.TrimSpace(id)
		if id == "" {
			id = o.defaultModel
		}
		o.modelID = id
		return nil
	})
}

// edit applies fn and, if it succeeds, an EventConfigure.
func (o *Orchestrator) edit(fn func() error) error {
	o.mu.Lock()
	if err := fn(); err != nil {
		o.mu.Unlock()
		return err
	}
	o.applyLocked(EventConfigure)
	snap, subs := o.snapshotLocked(), o.subscribersLocked()
	o.mu.Unlock()
	notify(subs, snap)
	return nil
}

// Close abandons the workflow. Any in-flight submission becomes stale.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.seq++
	o.file = nil
	o.text = ""
	o.promptID = ""
	o.notice = ""
	o.inputRev++
	o.applyLocked(EventClose)
	snap, subs := o.snapshotLocked(), o.subscribersLocked()
	o.mu.Unlock()
	notify(subs, snap)
}

// Submit validates and sends the pending request. A request that fails
// validation returns a *ValidationError without a transition or network call.
// While a submission is in flight further calls return ErrSubmissionInFlight.
// The payload is captured before sending so later edits only shape the next
// request.
func (o *Orchestrator) Submit(ctx context.Context) (gateway.Analysis, error) {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return gateway.Analysis{}, ErrSubmissionInFlight
	}
	if err := o.validateLocked(); err != nil {
		o.mu.Unlock()
		return gateway.Analysis{}, err
	}
	req := request{mode: o.mode, text: o.text, promptID: o.promptID, modelID: o.modelID}
	if o.file != nil {
		req.file = *o.file
	}
	if o.state != StateConfiguring {
		o.applyLocked(EventConfigure)
	}
	o.applyLocked(EventSubmit)
	o.seq++
	seq, rev := o.seq, o.inputRev
	o.notice = ""
	snap, subs := o.snapshotLocked(), o.subscribersLocked()
	o.mu.Unlock()

	notify(subs, snap)
	metrics.IncSubmissionStarted()

	result, err := o.send(ctx, req)

	o.mu.Lock()
	if seq != o.seq || o.state != StateSubmitting {
		o.mu.Unlock()
		metrics.IncStaleResponse()
		telemetry.Info("analysis.stale_response", map[string]any{"seq": seq})
		return gateway.Analysis{}, ErrStaleResponse
	}
	if err != nil {
		o.notice = gateway.DetailOr(err, FallbackNotice)
		o.applyLocked(EventFailed)
		snap, subs = o.snapshotLocked(), o.subscribersLocked()
		o.mu.Unlock()

		metrics.IncSubmissionFailed()
		telemetry.Error("analysis.submit_failed", map[string]any{
			"mode":      req.mode.String(),
			"prompt_id": req.promptID,
			"ai_model":  req.modelID,
			"error":     err,
		})
		notify(subs, snap)
		return gateway.Analysis{}, err
	}

	o.history = append([]gateway.Analysis{result}, o.history...)
	o.historyRev++
	last := result
	o.last = &last
	// Edits made while submitting belong to the next request.
	if rev == o.inputRev {
		o.file = nil
		o.text = ""
	}
	o.applyLocked(EventSucceeded)
	snap, subs = o.snapshotLocked(), o.subscribersLocked()
	o.mu.Unlock()

	metrics.IncSubmissionSucceeded()
	notify(subs, snap)
	return result, nil
}

func (o *Orchestrator) validateLocked() error {
	if o.promptID == "" {
		return invalid("prompt", "Please select a prompt")
	}
	switch o.mode {
	case ModeUpload:
		if o.file == nil || !hasPDFSuffix(o.file.Name) {
			return invalid("file", "Please select a PDF file")
		}
	case ModeText:
		if strings.TrimSpace(o.text) == "" {
			return invalid("text", "Please enter text to analyze")
		}
	}
	return nil
}

func (o *Orchestrator) send(ctx context.Context, req request) (gateway.Analysis, error) {
	opts := gateway.AnalysisOptions{PromptID: req.promptID, AIModel: req.modelID}
	if req.mode == ModeText {
		return o.api.AnalyzeText(ctx, gateway.TextAnalysis{
			PromptID:     opts.PromptID,
			AIModel:      opts.AIModel,
			TextContent:  req.text,
			DocumentName: gateway.TextDocumentName,
		})
	}
	rc, err := req.file.Open()
	if err != nil {
		return gateway.Analysis{}, fmt.Errorf("open %s: %w", req.file.Name, err)
	}
	defer rc.Close()
	return o.api.AnalyzeUpload(ctx, req.file.Name, rc, opts)
}

// LoadHistory replaces the cached history with the server's list. Results
// that succeeded while the list was in flight stay on top of it.
func (o *Orchestrator) LoadHistory(ctx context.Context) ([]gateway.Analysis, error) {
	o.mu.Lock()
	rev := o.historyRev
	o.mu.Unlock()

	list, err := o.api.ListAnalyses(ctx)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if added := int(o.historyRev - rev); added > 0 {
		list = mergeNewer(o.history[:min(added, len(o.history))], list)
		telemetry.Debug("analysis.history_merged", map[string]any{"local": added, "count": len(list)})
	}
	o.history = append([]gateway.Analysis(nil), list...)
	return append([]gateway.Analysis(nil), list...), nil
}

// mergeNewer puts newer ahead of fetched, skipping ids fetched already has.
func mergeNewer(newer, fetched []gateway.Analysis) []gateway.Analysis {
	seen := make(map[string]struct{}, len(fetched))
	for _, a := range fetched {
		seen[a.ID] = struct{}{}
	}
	out := make([]gateway.Analysis, 0, len(newer)+len(fetched))
	for _, a := range newer {
		if _, ok := seen[a.ID]; !ok {
			out = append(out, a)
		}
	}
	return append(out, fetched...)
}

// CopyResult puts text on the clipboard. Clipboard failures are logged and
// otherwise ignored.
func (o *Orchestrator) CopyResult(text string) {
	if err := o.clip.WriteText(text); err != nil {
		telemetry.Warn("analysis.copy_failed", map[string]any{"error": err})
	}
}

// DownloadResult fetches the report for id and saves it as
// analysis_<id>.txt in the download store. It does not touch the submission
// state and may run while a submission is in flight.
func (o *Orchestrator) DownloadResult(ctx context.Context, id string) (string, error) {
	if o.downloads == nil {
		return "", fmt.Errorf("download: no download store configured")
	}
	dl, err := o.api.DownloadAnalysis(ctx, id)
	if err != nil {
		return "", err
	}
	location, size, err := o.downloads.Save(ctx, gateway.DownloadFileName(id), dl.ContentType, bytes.NewReader(dl.Body))
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	telemetry.Info("analysis.downloaded", map[string]any{"analysis_id": id, "location": location, "size_bytes": size})
	return location, nil
}

func (o *Orchestrator) applyLocked(ev Event) {
	from := o.state
	to, err := transition(from, ev)
	if err != nil {
		telemetry.Error("analysis.transition_rejected", map[string]any{"from": from.String(), "event": ev.String()})
		return
	}
	o.state = to
	if from != to {
		telemetry.Info("analysis.transition", map[string]any{
			"from":  from.String(),
			"to":    to.String(),
			"event": ev.String(),
		})
	}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    o.state,
		Mode:     o.mode,
		Text:     o.text,
		PromptID: o.promptID,
		ModelID:  o.modelID,
		Notice:   o.notice,
	}
	if o.file != nil {
		f := *o.file
		snap.File = &f
	}
	if o.last != nil {
		last := *o.last
		snap.Last = &last
	}
	return snap
}

func (o *Orchestrator) subscribersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(o.subs))
	for _, fn := range o.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
