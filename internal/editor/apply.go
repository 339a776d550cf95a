package editor

import (
	"fmt"

	"github.com/sitesmith/sitesmith/internal/document"
	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/section"
)

// Op is one edit request as received over HTTP or the websocket.
type Op struct {
	Op       string         `json:"op"`
	Type     string         `json:"type,omitempty"`
	ID       string         `json:"id,omitempty"`
	Path     string         `json:"path,omitempty"`
	Value    any            `json:"value,omitempty"`
	Name     string         `json:"name,omitempty"`
	NewName  string         `json:"newName,omitempty"`
	Theme    string         `json:"theme,omitempty"`
	Template string         `json:"template,omitempty"`
	Styles   map[string]any `json:"styles,omitempty"`
}

// Op names accepted by Apply.
const (
	OpAddSection    = "addSection"
	OpDeleteSection = "deleteSection"
	OpMoveUp        = "moveUp"
	OpMoveDown      = "moveDown"
	OpUpdateField   = "updateField"
	OpAddPage       = "addPage"
	OpRenamePage    = "renamePage"
	OpDeletePage    = "deletePage"
	OpSwitchPage    = "switchPage"
	OpUpdateStyles  = "updateStyles"
	OpApplyTheme    = "applyTheme"
	OpResetStyles   = "resetStyles"
	OpLoadTemplate  = "loadTemplate"
	OpSetName       = "setName"
	OpUndo          = "undo"
	OpRedo          = "redo"
)

// Apply dispatches op to the matching session method.
func (s *Session) Apply(op Op) error {
	switch op.Op {
	case OpAddSection:
		_, err := s.AddSection(section.Type(op.Type))
		return err
	case OpDeleteSection:
		return s.DeleteSection(op.ID)
	case OpMoveUp:
		return s.MoveSectionUp(op.ID)
	case OpMoveDown:
		return s.MoveSectionDown(op.ID)
	case OpUpdateField:
		if op.Path == "" {
			return errors.NewValidation("path is required")
		}
		return s.UpdateField(op.ID, op.Path, op.Value)
	case OpAddPage:
		_, err := s.AddPage(op.Name)
		return err
	case OpRenamePage:
		_, err := s.RenamePage(op.Name, op.NewName)
		return err
	case OpDeletePage:
		return s.DeletePage(op.Name)
	case OpSwitchPage:
		s.SwitchPage(op.Name)
		return nil
	case OpUpdateStyles:
		return s.UpdateStyles(document.StylesFromMap(op.Styles))
	case OpApplyTheme:
		return s.ApplyTheme(op.Theme)
	case OpResetStyles:
		return s.ResetStyles()
	case OpLoadTemplate:
		return s.LoadTemplate(op.Template)
	case OpSetName:
		s.SetSiteName(op.Name)
		return nil
	case OpUndo:
		s.Undo()
		return nil
	case OpRedo:
		s.Redo()
		return nil
	case "":
		return errors.NewValidation("op is required")
	default:
		return errors.NewValidation(fmt.Sprintf("unknown op %q", op.Op))
	}
}
