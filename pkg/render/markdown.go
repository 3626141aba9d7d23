package render

import (
	"bytes"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/codeGROOVE-dev/tzmeet/pkg/planner"
)

// Markdown returns r as Markdown, converted from the HTML report.
func Markdown(r *planner.Result) (string, error) {
	var buf bytes.Buffer
	if err := HTML(&buf, r); err != nil {
		return "", err
	}
	out, err := md.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("converting report to markdown: %w", err)
	}
	return out, nil
}
