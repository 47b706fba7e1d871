package player

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/user/termdemo/internal/markup"
	"github.com/user/termdemo/internal/scenario"
	"github.com/user/termdemo/internal/surface"
)

const (
	tick          = 50 * time.Millisecond
	spinnerFrame  = 80 * time.Millisecond
	outputHoldMs  = 30
	answerHoldMs  = 100
	progressSteps = 20

	// loopGapMs separates passes of a looping session. minLoopGap holds at
	// any speed so a script without timed steps still yields.
	loopGapMs  = 1000
	minLoopGap = 10 * time.Millisecond
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// run is the state of one playback session.
type run struct {
	p   *Player
	ctx context.Context

	// current is the line command, question and answer steps write to.
	current       surface.LineID
	hasCurrent    bool
	currentText   string
	currentCursor bool
}

func (r *run) active() bool { return r.ctx.Err() == nil }

func (r *run) playScenario(index int, sc scenario.Scenario) {
	if r.p.opts.OnScenarioChange != nil {
		r.p.opts.OnScenarioChange(index, sc)
	}
	r.p.log.Debug("scenario start", "index", index, "name", sc.Name, "steps", len(sc.Steps))
	for i, step := range sc.Steps {
		if !r.active() {
			return
		}
		r.p.log.Debug("step", "scenario", sc.Name, "index", i, "kind", step.Kind)
		r.playStep(step)
		if r.active() {
			r.p.surf.ScrollToBottom()
		}
	}
}

func (r *run) playStep(step scenario.Step) {
	switch step.Kind {
	case scenario.KindPrompt:
		r.showPrompt()
	case scenario.KindCommand:
		r.typeCommand(step)
	case scenario.KindOutput:
		r.appendLine(surface.Line{Text: step.Text})
		r.sleep(r.p.scale(outputHoldMs))
	case scenario.KindQuestion:
		r.askQuestion(step)
	case scenario.KindAnswer:
		r.answer(step)
	case scenario.KindSpinner:
		r.spin(step)
	case scenario.KindWait:
		r.sleep(r.p.scale(step.Ms))
	case scenario.KindSelect:
		r.selectOne(step)
	case scenario.KindMultiselect:
		r.selectMany(step)
	case scenario.KindProgress:
		r.progress(step)
	}
}

// sleep waits d of playing time. Time spent paused does not count. It
// returns false as soon as the session is stopped.
func (r *run) sleep(d time.Duration) bool {
	remaining := d
	for {
		if !r.active() {
			return false
		}
		pauseCh, resumeCh := r.p.pauseState()
		if resumeCh != nil {
			select {
			case <-r.ctx.Done():
				return false
			case <-resumeCh:
			}
			continue
		}
		if remaining <= 0 {
			return true
		}

		start := time.Now()
		timer := time.NewTimer(min(remaining, tick))
		select {
		case <-r.ctx.Done():
			timer.Stop()
			return false
		case <-pauseCh:
			timer.Stop()
		case <-timer.C:
		}
		remaining -= time.Since(start)
	}
}

func (p *Player) promptText() string {
	return markup.Wrap("cyan", p.opts.PromptText) + " " + markup.Wrap("green", p.opts.PromptSymbol) + " "
}

// appendLine adds a line below everything else. Only the newest line may
// show the cursor, so the current line loses it.
func (r *run) appendLine(line surface.Line) surface.LineID {
	r.dropCursor()
	return r.p.surf.AppendLine(line)
}

func (r *run) dropCursor() {
	if r.hasCurrent && r.currentCursor {
		r.currentCursor = false
		r.p.surf.UpdateLine(r.current, surface.Line{Text: r.currentText})
	}
}

func (r *run) setCurrent(id surface.LineID, text string, cursor bool) {
	r.current, r.hasCurrent = id, true
	r.currentText, r.currentCursor = text, cursor
}

func (r *run) ensureCurrent() {
	if !r.hasCurrent {
		r.setCurrent(r.appendLine(surface.Line{Cursor: true}), "", true)
	}
}

func (r *run) showPrompt() {
	text := r.p.promptText()
	r.setCurrent(r.appendLine(surface.Line{Text: text, Cursor: true}), text, true)
}

func (r *run) typeCommand(step scenario.Step) {
	r.ensureCurrent()
	delay := r.p.scale(step.Delay)
	for _, ch := range step.Text {
		if !r.active() {
			return
		}
		r.currentText += string(ch)
		r.currentCursor = true
		r.p.surf.UpdateLine(r.current, surface.Line{Text: r.currentText, Cursor: true})
		if !r.sleep(delay) {
			return
		}
	}
	r.dropCursor()
}

func (r *run) askQuestion(step scenario.Step) {
	text := markup.Wrap("cyan", "?") + " " + step.Text + " "
	r.setCurrent(r.appendLine(surface.Line{Text: text, Cursor: true}), text, true)
}

func (r *run) answer(step scenario.Step) {
	r.ensureCurrent()
	r.currentText += markup.Wrap("white", step.Text)
	r.currentCursor = false
	r.p.surf.UpdateLine(r.current, surface.Line{Text: r.currentText})
	r.sleep(r.p.scale(answerHoldMs))
}

func (r *run) spin(step scenario.Step) {
	label := markup.Wrap("cyan", step.Text)
	frame := func(i int) surface.Line {
		return surface.Line{Text: markup.Wrap("cyan", spinnerFrames[i%len(spinnerFrames)]) + " " + label}
	}

	id := r.appendLine(frame(0))
	remaining := r.p.scale(step.Duration)
	for i := 1; remaining > 0; i++ {
		d := min(spinnerFrame, remaining)
		if !r.sleep(d) {
			return
		}
		remaining -= d
		if remaining > 0 {
			r.p.surf.UpdateLine(id, frame(i))
		}
	}
	r.p.surf.RemoveLine(id)
}

func questionLine(question string) string {
	return markup.Wrap("cyan", "?") + " " + markup.Wrap("bold", question)
}

func selectOption(label string, current bool) surface.Line {
	if current {
		return surface.Line{Text: markup.Wrap("cyan", "❯ "+label)}
	}
	return surface.Line{Text: "  " + markup.Wrap("gray", label)}
}

// collapse removes option lines and writes the chosen value after the
// question.
func (r *run) collapse(qid surface.LineID, question string, options []surface.LineID, chosen string) {
	for i := len(options) - 1; i >= 0; i-- {
		r.p.surf.RemoveLine(options[i])
	}
	r.p.surf.UpdateLine(qid, surface.Line{Text: questionLine(question) + " " + markup.Wrap("cyan", chosen)})
}

// selectOne moves the highlight from the first option to the chosen one,
// spending an equal share of the duration on each option it visits.
func (r *run) selectOne(step scenario.Step) {
	qid := r.appendLine(surface.Line{Text: questionLine(step.Question)})
	ids := make([]surface.LineID, len(step.Options))
	for i, opt := range step.Options {
		ids[i] = r.p.surf.AppendLine(selectOption(opt, i == 0))
	}

	slice := r.p.scale(step.Duration) / time.Duration(step.Selected+1)
	for cur := 0; cur <= step.Selected; cur++ {
		if cur > 0 {
			r.p.surf.UpdateLine(ids[cur-1], selectOption(step.Options[cur-1], false))
			r.p.surf.UpdateLine(ids[cur], selectOption(step.Options[cur], true))
		}
		if !r.sleep(slice) {
			return
		}
	}
	r.collapse(qid, step.Question, ids, step.Options[step.Selected])
}

func multiOption(label string, current, checked bool) surface.Line {
	pointer := " "
	if current {
		pointer = markup.Wrap("cyan", "❯")
	}
	box := markup.Wrap("gray", "○")
	if checked {
		box = markup.Wrap("green", "◉")
	}
	if !current {
		label = markup.Wrap("gray", label)
	}
	return surface.Line{Text: pointer + " " + box + " " + label}
}

// selectMany walks the cursor over every option and toggles the picks on
// the way. The duration is split over each move, each toggle and a final
// confirm.
func (r *run) selectMany(step scenario.Step) {
	picked := make(map[int]bool, len(step.Picks))
	for _, p := range step.Picks {
		picked[p] = true
	}
	checked := make([]bool, len(step.Options))

	qid := r.appendLine(surface.Line{Text: questionLine(step.Question)})
	ids := make([]surface.LineID, len(step.Options))
	for i, opt := range step.Options {
		ids[i] = r.p.surf.AppendLine(multiOption(opt, i == 0, false))
	}

	slice := r.p.scale(step.Duration) / time.Duration(len(step.Options)+len(step.Picks)+1)
	for i, opt := range step.Options {
		if i > 0 {
			prev := step.Options[i-1]
			r.p.surf.UpdateLine(ids[i-1], multiOption(prev, false, checked[i-1]))
			r.p.surf.UpdateLine(ids[i], multiOption(opt, true, checked[i]))
		}
		if !r.sleep(slice) {
			return
		}
		if picked[i] {
			checked[i] = true
			r.p.surf.UpdateLine(ids[i], multiOption(opt, true, true))
			if !r.sleep(slice) {
				return
			}
		}
	}
	if !r.sleep(slice) {
		return
	}

	labels := make([]string, len(step.Picks))
	for i, p := range step.Picks {
		labels[i] = step.Options[p]
	}
	r.collapse(qid, step.Question, ids, strings.Join(labels, ", "))
}

func progressLine(text string, percent, width int) surface.Line {
	filled := (percent*width + 50) / 100
	filled = max(0, min(width, filled))
	bar := markup.Wrap("green", strings.Repeat("█", filled)) +
		markup.Wrap("gray", strings.Repeat("░", width-filled))
	prefix := ""
	if text != "" {
		prefix = text + " "
	}
	return surface.Line{Text: prefix + bar + " " + strconv.Itoa(percent) + "%"}
}

// progress fills the bar to the target percent in fixed increments.
func (r *run) progress(step scenario.Step) {
	width := surface.ProgressWidth(r.p.surf)
	id := r.appendLine(progressLine(step.Text, 0, width))
	slice := r.p.scale(step.Duration) / progressSteps
	for k := 1; k <= progressSteps; k++ {
		if !r.sleep(slice) {
			return
		}
		r.p.surf.UpdateLine(id, progressLine(step.Text, step.Percent*k/progressSteps, width))
	}
}
