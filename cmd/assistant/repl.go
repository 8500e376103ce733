package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/medspa-booking-assistant/internal/assistant"
	"github.com/wolfman30/medspa-booking-assistant/internal/booking"
	"github.com/wolfman30/medspa-booking-assistant/internal/chatlog"
	"github.com/wolfman30/medspa-booking-assistant/internal/recording"
)

const helpText = `Type a message to chat, or a command:
  /record <file> [hold]   send an audio file as a voice message
  /book                   open the booking form
  /booknow                book with the suggested specialist
  /doctor <id>            pick a doctor in the form
  /slot <slot>            pick a slot, e.g. /slot Tue 09:30
  /name <name>            patient name
  /email <email>          patient email
  /note <text>            note for the doctor
  /submit                 confirm the booking
  /close                  close the booking form
  /new                    start a new session
  /state                  show session and form state
  /quit                   exit`

// repl is the terminal front-end. It prints each message once its text
// settles and re-renders the booking form whenever it changes.
type repl struct {
	in  io.Reader
	out io.Writer
	o   *assistant.Orchestrator

	mu         sync.Mutex
	printed    map[string]string
	lastForm   string
	suggestion string
	lastNotice string
}

func newREPL(in io.Reader, out io.Writer) *repl {
	return &repl{in: in, out: out, printed: make(map[string]string)}
}

func (r *repl) attach(o *assistant.Orchestrator) {
	r.o = o
	o.Messages().Subscribe(func(ev chatlog.Event) {
		if ev.Kind != chatlog.EventReset {
			return
		}
		r.mu.Lock()
		r.printed = make(map[string]string)
		r.lastForm = ""
		r.suggestion = ""
		r.mu.Unlock()
	})
}

// notice prints a notice as soon as it is raised. flush shows the same
// notice from the snapshot when no handler was installed; each is printed
// once.
func (r *repl) notice(n assistant.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printNoticeLocked(n)
}

func (r *repl) printNoticeLocked(n assistant.Notice) {
	key := n.Title + "\x00" + n.Text + "\x00" + n.Until.String()
	if key == r.lastNotice {
		return
	}
	r.lastNotice = key
	fmt.Fprintf(r.out, "** %s: %s\n", n.Title, n.Text)
}

func (r *repl) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	r.flush(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := r.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				r.printf("error: %v\n", err)
			}
			r.flush(ctx)
			if quit {
				return nil
			}
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, r.o.Send(ctx, line)
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	form := r.o.Booking()

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		r.printf("%s\n", helpText)
	case "/record":
		return false, r.record(ctx, rest)
	case "/book":
		r.o.OpenBookingForm(ctx)
	case "/booknow":
		r.o.BookNow(ctx)
	case "/doctor":
		id, err := strconv.Atoi(rest)
		if err != nil {
			return false, fmt.Errorf("doctor id must be a number")
		}
		return false, form.SelectDoctor(id)
	case "/slot":
		return false, form.SelectSlot(rest)
	case "/name":
		return false, form.SetPatientName(rest)
	case "/email":
		return false, form.SetPatientEmail(rest)
	case "/note":
		return false, form.SetNote(rest)
	case "/submit":
		_, err := r.o.SubmitBooking(ctx)
		var verr *booking.ValidationError
		var rejected *booking.RejectedError
		if errors.As(err, &verr) || errors.As(err, &rejected) {
			// Shown with the form.
			return false, nil
		}
		return false, err
	case "/close":
		form.Close()
	case "/new":
		_, err := r.o.NewSession(ctx)
		return false, err
	case "/state":
		r.printState(ctx)
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}

// record plays a file through the hold-to-record gesture, holding for the
// given duration.
func (r *repl) record(ctx context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return fmt.Errorf("usage: /record <file> [hold]")
	}
	hold := time.Second
	if len(fields) > 1 {
		d, err := time.ParseDuration(fields[1])
		if err != nil {
			return fmt.Errorf("invalid hold %q: %w", fields[1], err)
		}
		hold = d
	}

	mic := &recording.FileMicrophone{Path: fields[0], ContentType: contentTypeFor(fields[0])}
	if err := r.o.Recorder().SetMicrophone(mic); err != nil {
		return err
	}
	if err := r.o.StartRecording(ctx); err != nil {
		if errors.Is(err, recording.ErrMicrophoneUnavailable) {
			return nil
		}
		return err
	}

	timer := time.NewTimer(hold)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		r.o.CancelRecording()
		return nil
	}
	return r.o.StopRecording(ctx)
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "audio/webm"
	}
}

// flush prints settled messages that changed since the last call, then the
// suggestion, the active notice and the booking form when they changed.
func (r *repl) flush(ctx context.Context) {
	st := r.o.Snapshot(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range st.Messages {
		if m.Text == "" || m.Text == recording.PlaceholderText || r.printed[m.ID] == m.Text {
			continue
		}
		r.printed[m.ID] = m.Text
		if m.Origin == chatlog.OriginUser {
			fmt.Fprintf(r.out, "you> %s\n", m.Text)
		} else {
			fmt.Fprintf(r.out, "astra> %s\n", m.Text)
		}
	}

	suggestion := ""
	if st.Suggestion != nil {
		suggestion = fmt.Sprintf("Suggested specialist: %s (%d available). Use /booknow to book.", st.Suggestion.Specialty, len(st.Suggestion.Doctors))
	}
	if suggestion != r.suggestion {
		r.suggestion = suggestion
		if suggestion != "" {
			fmt.Fprintln(r.out, suggestion)
		}
	}

	if st.Notice != nil {
		r.printNoticeLocked(*st.Notice)
	}

	form := renderForm(st.Booking)
	if form != r.lastForm {
		r.lastForm = form
		if form != "" {
			fmt.Fprint(r.out, form)
		}
	}
}

func renderForm(st booking.State) string {
	if !st.Open {
		return ""
	}
	var b strings.Builder
	b.WriteString("-- Booking form --\n")
	if len(st.Doctors) == 0 {
		b.WriteString("  (no doctors available)\n")
	}
	for _, d := range st.Doctors {
		mark := " "
		if d.ID == st.Draft.DoctorID {
			mark = "*"
		}
		fmt.Fprintf(&b, " %s %d  %s (%s)  %s\n", mark, d.ID, d.Name, d.Specialization, strings.Join(d.AvailableSlots, ", "))
	}
	fmt.Fprintf(&b, "  slot:  %s\n", st.Draft.Slot)
	fmt.Fprintf(&b, "  name:  %s\n", st.Draft.PatientName)
	fmt.Fprintf(&b, "  email: %s\n", st.Draft.PatientEmail)
	fmt.Fprintf(&b, "  note:  %s\n", st.Draft.Note)
	if st.Error != "" {
		fmt.Fprintf(&b, "  ! %s\n", st.Error)
	}
	return b.String()
}

func (r *repl) printState(ctx context.Context) {
	st := r.o.Snapshot(ctx)
	r.printf("session:   %s\nrecording: %s\nthinking:  %t\nmessages:  %d\nform open: %t\n",
		st.SessionID, st.Recording, st.Thinking, len(st.Messages), st.Booking.Open)
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}
