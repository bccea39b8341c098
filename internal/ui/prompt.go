package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

// Confirm prompts the user for yes/no confirmation.
func Confirm(prompt string, defaultYes bool) (bool, error) {
	label := prompt
	if defaultYes {
		label += " [Y/n]"
	} else {
		label += " [y/N]"
	}

	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   "",
	}

	if defaultYes {
		p.Default = "y"
	}

	result, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, err
		}
		return defaultYes, nil // Return default on error
	}

	result = strings.ToLower(strings.TrimSpace(result))
	if result == "" {
		return defaultYes, nil
	}

	return result == "y" || result == "yes", nil
}

// packageItem is what the select templates render.
type packageItem struct {
	Name    string
	ID      string
	Version string
	Source  string
}

// SelectPackage prompts the user to pick one of several candidates.
func SelectPackage(packages []*manager.Package, prompt string) (*manager.Package, error) {
	if len(packages) == 0 {
		return nil, fmt.Errorf("no packages to select from")
	}

	if len(packages) == 1 {
		return packages[0], nil
	}

	items := make([]packageItem, len(packages))
	for i, p := range packages {
		items[i] = packageItem{
			Name:    p.Name,
			ID:      p.ID,
			Version: p.Version,
			Source:  p.ManagerName() + ": " + p.SourceName(),
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ .Name | cyan }} {{ .Version | green }} [{{ .Source | magenta }}]",
		Inactive: "  {{ .Name }} {{ .Version | faint }} [{{ .Source | faint }}]",
		Selected: "✓ {{ .Name | cyan }} {{ .Version | green }} [{{ .Source | magenta }}]",
		Details: `
--------- Package ----------
{{ "Name:" | faint }}	{{ .Name }}
{{ "Id:" | faint }}	{{ .ID }}
{{ "Version:" | faint }}	{{ .Version }}
{{ "Source:" | faint }}	{{ .Source }}`,
	}

	searcher := func(input string, index int) bool {
		item := items[index]
		input = strings.ToLower(input)
		return strings.Contains(strings.ToLower(item.Name), input) ||
			strings.Contains(strings.ToLower(item.ID), input)
	}

	p := promptui.Select{
		Label:     prompt,
		Items:     items,
		Templates: templates,
		Size:      10,
		Searcher:  searcher,
	}

	index, _, err := p.Run()
	if err != nil {
		return nil, err
	}

	return packages[index], nil
}

// FailureHandler asks whether a failed operation should be retried. With
// autoConfirm set the operation is closed without asking.
func FailureHandler(autoConfirm bool) operation.FailureHandler {
	return func(op *operation.Operation) operation.Action {
		ErrorMsg(op.StatusLine())
		if autoConfirm {
			return operation.ActionClose
		}

		output := op.Output()
		if len(output) > 10 {
			output = output[len(output)-10:]
		}
		for _, line := range output {
			MutedMsg("    %s", line)
		}

		p := promptui.Select{
			Label: fmt.Sprintf("%s failed", op.Package().Name),
			Items: []string{"Close", "Retry"},
		}
		index, _, err := p.Run()
		if err != nil || index == 0 {
			return operation.ActionClose
		}
		return operation.ActionRetry
	}
}
