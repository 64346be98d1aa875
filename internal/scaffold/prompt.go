package scaffold

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	dserrors "github.com/systmms/keysync/internal/errors"
)

// Prompter asks for answers on a line based terminal
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a prompter reading from in and writing prompts to out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Collect asks for the service id and then each answer, offering the
// defaults derived from the id. An empty reply keeps the default.
func (p *Prompter) Collect(ctx context.Context) (Answers, error) {
	id, err := p.ask(ctx, "\nService name (e.g., 'redis', 'mongodb'): ")
	if err != nil {
		return Answers{}, err
	}
	if err := ValidateID(id); err != nil {
		return Answers{}, dserrors.UserError{Message: err.Error(), Suggestion: "Use a short lowercase name such as 'redis'"}
	}

	a := DefaultAnswers(id)
	if a.DisplayName, err = p.askDefault(ctx, "Display name", a.DisplayName); err != nil {
		return Answers{}, err
	}
	if a.BucketName, err = p.askDefault(ctx, "S3 bucket name", a.BucketName); err != nil {
		return Answers{}, err
	}
	if a.Vault, err = p.askDefault(ctx, "1Password vault", a.Vault); err != nil {
		return Answers{}, err
	}
	tags, err := p.askDefault(ctx, "Tags", strings.Join(a.Tags, ","))
	if err != nil {
		return Answers{}, err
	}
	if parsed := parseTags(tags); len(parsed) > 0 {
		a.Tags = parsed
	}
	return a, nil
}

func (p *Prompter) askDefault(ctx context.Context, label, def string) (string, error) {
	reply, err := p.ask(ctx, fmt.Sprintf("%s (default: '%s'): ", label, def))
	if err != nil {
		return "", err
	}
	if reply == "" {
		return def, nil
	}
	return reply, nil
}

type lineResult struct {
	line string
	err  error
}

// ask prints prompt and waits for a line or for ctx to end
func (p *Prompter) ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	done := make(chan lineResult, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		done <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", dserrors.InterruptedError{Stage: "collecting service details", Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			if !errors.Is(res.err, io.EOF) {
				return "", res.err
			}
			if res.line == "" {
				return "", dserrors.UserError{Message: "input ended before all answers were given"}
			}
		}
		return strings.TrimSpace(res.line), nil
	}
}
