package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/matzehuels/templatestudio/pkg/session"
	"github.com/matzehuels/templatestudio/pkg/template"
)

// errAborted is returned when the user interrupts a prompt.
var errAborted = stderrors.New("aborted")

// InputConfig configures a single-line prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// TextAreaConfig configures a multi-line prompt.
type TextAreaConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// PromptDriver asks for field values. It lets the form be driven without a
// terminal in tests.
type PromptDriver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	TextArea(ctx context.Context, cfg TextAreaConfig) (string, error)
}

type surveyDriver struct{}

func newSurveyDriver() PromptDriver {
	return surveyDriver{}
}

func (surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	if err := survey.AskOne(prompt, &out, validatorOpts(cfg.Validator)...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Multiline{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	if err := survey.AskOne(prompt, &out, validatorOpts(cfg.Validator)...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func validatorOpts(v func(string) error) []survey.AskOpt {
	if v == nil {
		return nil
	}
	return []survey.AskOpt{survey.WithValidator(func(ans any) error {
		s, _ := ans.(string)
		return v(s)
	})}
}

func translateSurveyErr(err error) error {
	if stderrors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}

// fillForm prompts for every field of the session's template and commits
// each answer as soon as it is given.
func fillForm(ctx context.Context, d PromptDriver, sess *session.Session) error {
	def := sess.Template()
	for _, f := range def.Fields {
		current := format(sess.Values()[f.Key])
		validate := func(raw string) error {
			_, err := f.Parse(raw)
			return err
		}

		var answer string
		var err error
		if f.Kind == template.KindTextarea {
			answer, err = d.TextArea(ctx, TextAreaConfig{
				Message:   f.Label,
				Default:   current,
				Help:      f.Placeholder,
				Validator: validate,
			})
		} else {
			answer, err = d.Input(ctx, InputConfig{
				Message:   f.Label,
				Default:   current,
				Help:      help(f),
				Validator: validate,
			})
		}
		if err != nil {
			return err
		}
		if err := sess.Commit(f.Key, answer); err != nil {
			return err
		}
	}
	return nil
}

func help(f template.Field) string {
	switch {
	case f.Kind == template.KindImage:
		return "An http(s) image URL, or empty for no image"
	case f.Bounds != nil:
		return fmt.Sprintf("A number between %g and %g", f.Bounds.Min, f.Bounds.Max)
	}
	return f.Placeholder
}

// format renders a property value as form input.
func format(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
