package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SP007-sun/pdfX/internal/document"
	"github.com/SP007-sun/pdfX/internal/errs"
	"github.com/SP007-sun/pdfX/internal/model"
)

// OpKind names an edit step.
type OpKind string

const (
	OpDelete  OpKind = "delete"
	OpMerge   OpKind = "merge"
	OpDemerge OpKind = "demerge"
	OpInvert  OpKind = "invert"
)

// Op is one edit step. Positions are 1-based and refer to the page order
// at the time the step runs.
type Op struct {
	Kind      OpKind
	Positions []int
	Config    model.MergeConfig
	Invert    bool // for OpInvert
}

// ParseOp parses steps such as
//
//	delete 3,5-7
//	merge 1,2 size=A4_landscape bg=black invert
//	demerge 2
//	invert on
func ParseOp(s string) (Op, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Op{}, errs.New(errs.InvalidConfig, "empty operation")
	}
	op := Op{Kind: OpKind(strings.ToLower(fields[0]))}
	args := fields[1:]

	switch op.Kind {
	case OpInvert:
		if len(args) != 1 {
			return Op{}, errs.New(errs.InvalidConfig, "invert takes on or off")
		}
		switch strings.ToLower(args[0]) {
		case "on", "true", "1":
			op.Invert = true
		case "off", "false", "0":
		default:
			return Op{}, errs.New(errs.InvalidConfig, "invert takes on or off, got %q", args[0])
		}
		return op, nil
	case OpDelete, OpMerge, OpDemerge:
	default:
		return Op{}, errs.New(errs.InvalidConfig, "unknown operation %q", fields[0])
	}

	if len(args) == 0 {
		return Op{}, errs.New(errs.InvalidConfig, "%s needs page positions", op.Kind)
	}
	pos, err := parsePositions(args[0])
	if err != nil {
		return Op{}, err
	}
	op.Positions = pos
	if op.Kind == OpDemerge && len(pos) != 1 {
		return Op{}, errs.New(errs.InvalidConfig, "demerge takes one position")
	}

	opts := args[1:]
	if op.Kind != OpMerge && len(opts) > 0 {
		return Op{}, errs.New(errs.InvalidConfig, "%s takes no options", op.Kind)
	}
	for _, o := range opts {
		key, val, _ := strings.Cut(o, "=")
		switch strings.ToLower(key) {
		case "size":
			ps, err := model.ParsePageSize(val)
			if err != nil {
				return Op{}, err
			}
			op.Config.PageSize = ps
		case "bg", "background":
			bg, err := model.ParseBackground(val)
			if err != nil {
				return Op{}, err
			}
			op.Config.Background = bg
		case "invert":
			op.Config.Invert = true
		default:
			return Op{}, errs.New(errs.InvalidConfig, "unknown merge option %q", o)
		}
	}
	return op, nil
}

// parsePositions accepts comma separated positions and ranges like 2-4.
func parsePositions(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(lo)
		if err != nil || a < 1 {
			return nil, errs.New(errs.InvalidConfig, "invalid page position %q", part)
		}
		b := a
		if isRange {
			b, err = strconv.Atoi(hi)
			if err != nil || b < a {
				return nil, errs.New(errs.InvalidConfig, "invalid page range %q", part)
			}
		}
		for p := a; p <= b; p++ {
			out = append(out, p)
		}
	}
	return out, nil
}

// Apply runs the step against s.
func (op Op) Apply(s *document.Session) error {
	if op.Kind == OpInvert {
		s.SetGlobalInvert(op.Invert)
		return nil
	}

	pages := s.Pages()
	s.ClearSelection()
	for _, p := range op.Positions {
		if p > len(pages) {
			return errs.New(errs.InvalidConfig, "page %d out of range, document has %d pages", p, len(pages))
		}
		s.Select(pages[p-1].PageID())
	}

	switch op.Kind {
	case OpDelete:
		s.Delete()
		return nil
	case OpMerge:
		_, err := s.Merge(op.Config)
		return err
	case OpDemerge:
		_, err := s.Demerge()
		return err
	}
	return fmt.Errorf("unsupported operation %q", op.Kind)
}

func (op Op) String() string {
	switch op.Kind {
	case OpInvert:
		return fmt.Sprintf("invert %t", op.Invert)
	case OpMerge:
		return fmt.Sprintf("merge %v %s", op.Positions, op.Config)
	}
	return fmt.Sprintf("%s %v", op.Kind, op.Positions)
}
