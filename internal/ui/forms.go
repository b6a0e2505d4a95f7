package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/pidash/internal/auth"
)

type formKind int

const (
	formLogin formKind = iota
	formSignup
	formPassword
)

// form is a column of text inputs with per-field error lines.
type form struct {
	kind   formKind
	title  string
	labels []string
	inputs []textinput.Model
	errs   []string
	focus  int

	// message is the form-level outcome; ok selects its color.
	message    string
	ok         bool
	submitting bool
}

func newForm(kind formKind) form {
	f := form{kind: kind}
	switch kind {
	case formLogin:
		f.title = "Sign in"
		f.labels = []string{"Username", "Password"}
	case formSignup:
		f.title = "Create account"
		f.labels = []string{"Username", "Password", "Confirm password"}
	case formPassword:
		f.title = "Change password"
		f.labels = []string{"Current password", "New password", "Confirm password"}
	}
	for i := range f.labels {
		in := textinput.New()
		in.Prompt = "› "
		in.CharLimit = 64
		in.Width = 32
		if kind == formPassword || i > 0 {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.inputs = append(f.inputs, in)
	}
	f.errs = make([]string, len(f.inputs))
	f.inputs[0].Focus()
	return f
}

// setFocus moves focus to field i, wrapping around.
func (f *form) setFocus(i int) tea.Cmd {
	n := len(f.inputs)
	f.focus = ((i % n) + n) % n
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	return f.inputs[f.focus].Focus()
}

func (f *form) blur() {
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
}

func (f form) onLast() bool {
	return f.focus == len(f.inputs)-1
}

func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f form) value(i int) string {
	return f.inputs[i].Value()
}

// clear empties every field and drops old errors.
func (f *form) clear() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	f.clearErrors()
}

func (f *form) clearErrors() {
	for i := range f.errs {
		f.errs[i] = ""
	}
	f.message = ""
	f.ok = false
}

// apply shows a submission outcome on the fields it names.
func (f *form) apply(res auth.FormResult) {
	f.submitting = false
	f.clearErrors()
	e := res.Errors
	switch f.kind {
	case formLogin:
		f.message = e.Message
		if !res.Success && e.Message == "" {
			f.message = "Sign in failed"
		}
	case formSignup:
		f.errs[0], f.errs[1], f.errs[2] = e.Username, e.Password, e.Confirm
		f.message = e.Message
	case formPassword:
		f.errs[1], f.errs[2] = e.Password, e.Confirm
		f.message = e.Message
	}
	f.ok = res.Success
}

func (f form) view(styles Styles, spinner string, focused bool) string {
	var b strings.Builder
	b.WriteString(styles.CardTitle.Render(f.title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		label := styles.MutedText
		if focused && i == f.focus {
			label = styles.AccentText
		}
		b.WriteString(label.Render(f.labels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n")
		if f.errs[i] != "" {
			b.WriteString(styles.DangerText.Render(f.errs[i]))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	switch {
	case f.submitting:
		b.WriteString(spinner + " " + styles.MutedText.Render("Submitting..."))
	case f.message != "" && f.ok:
		b.WriteString(styles.SuccessText.Render(f.message))
	case f.message != "":
		b.WriteString(styles.DangerText.Render(f.message))
	}
	return strings.TrimRight(b.String(), "\n")
}
