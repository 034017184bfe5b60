package pagedecode

import (
	"context"
	"fmt"

	"github.com/tsawler/pagedecode/font"
	"github.com/tsawler/pagedecode/scheduler"
	"github.com/tsawler/pagedecode/text"
)

// Role names what a registered handler is consulted for.
type Role int

const (
	// RoleFont handlers are asked for a glyph source before the font
	// library. The handler is a font.FontHandler or a function with the
	// signature of font.FontHandlerFunc.
	RoleFont Role = iota + 1
	// RoleStatus handlers are told about every page state change. The
	// handler is a scheduler.StatusFunc or func(page int, state
	// scheduler.State).
	RoleStatus
	// RoleGrouping handlers replace the text grouping engine for pages
	// decoded afterwards. The handler is a text.Engine; when it is also a
	// text.Joiner it joins the lines returned by Session.Text.
	RoleGrouping
)

func (r Role) String() string {
	switch r {
	case RoleFont:
		return "font"
	case RoleStatus:
		return "status"
	case RoleGrouping:
		return "grouping"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// handlers is the typed registry. A nil entry means the default.
type handlers struct {
	font     font.FontHandler
	status   scheduler.StatusFunc
	grouping text.Engine
}

// RegisterHandler installs handler for role, replacing any earlier one. A
// nil handler restores the default behaviour. A handler of the wrong type
// returns ErrHandlerType.
func (s *Session) RegisterHandler(role Role, handler any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	switch role {
	case RoleFont:
		var h font.FontHandler
		switch v := handler.(type) {
		case nil:
		case font.FontHandler:
			h = v
		case func(context.Context, *font.Descriptor) (*font.GlyphSource, bool):
			h = font.FontHandlerFunc(v)
		default:
			return fmt.Errorf("%w: %s handler is %T", ErrHandlerType, role, handler)
		}
		s.handlers.font = h
		s.fonts.SetHandler(h)
		// Fonts resolved without the handler would otherwise stay cached.
		s.fonts.Flush()
	case RoleStatus:
		var fn scheduler.StatusFunc
		switch v := handler.(type) {
		case nil:
		case scheduler.StatusFunc:
			fn = v
		case func(int, scheduler.State):
			fn = v
		default:
			return fmt.Errorf("%w: %s handler is %T", ErrHandlerType, role, handler)
		}
		s.handlers.status = fn
		if s.sched != nil {
			s.sched.SetStatus(fn)
		}
	case RoleGrouping:
		var e text.Engine
		if handler != nil {
			v, ok := handler.(text.Engine)
			if !ok {
				return fmt.Errorf("%w: %s handler is %T", ErrHandlerType, role, handler)
			}
			e = v
		}
		s.handlers.grouping = e
		if s.sched != nil {
			s.sched.SetEngine(s.engine())
		}
	default:
		return fmt.Errorf("unknown handler role %s", role)
	}
	s.logger.Debug("handler registered", "role", role.String(), "handler", fmt.Sprintf("%T", handler))
	return nil
}

// engine returns the grouping engine in effect. It is called with s.mu held.
func (s *Session) engine() text.Engine {
	if s.handlers.grouping != nil {
		return s.handlers.grouping
	}
	return s.grouper
}

// joinText joins lines with the registered engine when it can, otherwise
// with the default configuration.
func (s *Session) joinText(lines []text.TextLine) string {
	s.mu.RLock()
	e := s.engine()
	s.mu.RUnlock()
	if j, ok := e.(text.Joiner); ok {
		return j.Text(lines)
	}
	return text.Text(lines)
}
