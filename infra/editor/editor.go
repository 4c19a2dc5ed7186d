// Package editor hands post drafts to the user's external editor.
package editor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/thetruth/truthterm/domain"
)

// ErrUnchanged is returned by ReadContent when the draft came back empty or
// untouched, which cancels the compose.
var ErrUnchanged = errors.New("draft unchanged")

// EnvEditor prepares an external editor command from $VISUAL or $EDITOR
// (fallback: "vi"). It does not run the editor: callers pass the returned
// *exec.Cmd to tea.ExecProcess so Bubble Tea releases the terminal.
type EnvEditor struct {
	drafts map[string]string // temp path -> content the editor was opened with
}

// NewEnvEditor creates an EnvEditor.
func NewEnvEditor() *EnvEditor {
	return &EnvEditor{drafts: make(map[string]string)}
}

const headerEnd = "-->"

func header(context string) string {
	var b strings.Builder
	b.WriteString("<!--\n")
	if context != "" {
		b.WriteString(context + "\n\n")
	}
	fmt.Fprintf(&b, "Write your post below (up to %d characters).\n", domain.MaxPostLength)
	b.WriteString("Save and quit to continue. An empty or unchanged draft cancels.\n")
	b.WriteString(headerEnd + "\n\n")
	return b.String()
}

func editorCommand() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}

// Cmd writes content under an instruction header to a temp file and returns
// the command editing it. context, when set, is shown in the header (for
// example "Commenting on @alice").
func (e *EnvEditor) Cmd(content, context string) (*exec.Cmd, string, error) {
	tmp, err := os.CreateTemp("", "truthterm-*.md")
	if err != nil {
		return nil, "", fmt.Errorf("creating draft file: %w", err)
	}
	path := tmp.Name()
	defer tmp.Close()

	if _, err := tmp.WriteString(header(context) + content); err != nil {
		os.Remove(path)
		return nil, "", fmt.Errorf("writing draft file: %w", err)
	}
	e.drafts[path] = strings.TrimSpace(content)

	args := editorCommand()
	args = append(args, path)
	return exec.Command(args[0], args[1:]...), path, nil
}

// ReadContent returns the edited draft without its header and removes the
// temp file. It returns ErrUnchanged when the draft is empty or identical to
// what the editor was opened with.
func (e *EnvEditor) ReadContent(path string) (string, error) {
	defer os.Remove(path)
	original, tracked := e.drafts[path]
	delete(e.drafts, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading draft file: %w", err)
	}

	content := string(data)
	if strings.HasPrefix(strings.TrimSpace(content), "<!--") {
		if idx := strings.Index(content, headerEnd); idx != -1 {
			content = content[idx+len(headerEnd):]
		}
	}
	content = strings.TrimSpace(content)
	if content == "" || (tracked && original != "" && content == original) {
		return "", ErrUnchanged
	}
	return content, nil
}
