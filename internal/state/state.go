package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
)

// StateCode is the persisted identifier of a user's position in a flow.
type StateCode int

const (
	// StateIdle waits for a sticker or a command.
	StateIdle StateCode = 0x0
	// StateRemoveTagSet is reserved.
	StateRemoveTagSet StateCode = 0x1
	// StateRemoveMultiTagSet is reserved.
	StateRemoveMultiTagSet StateCode = 0x2
	// StateMassEditCollecting accumulates stickers for a mass replace.
	StateMassEditCollecting StateCode = 0x3
	// StateDeleteSticker is reserved.
	StateDeleteSticker StateCode = 0x4
	// StateReplaceTags is reserved.
	StateReplaceTags StateCode = 0x5
	// StateBatchCollecting accumulates stickers for /multitag.
	StateBatchCollecting StateCode = 0x6
	// StateDeleteMultipleStickers is reserved.
	StateDeleteMultipleStickers StateCode = 0x7
	// StateSingleAwaitingTags holds one sticker and waits for its tags.
	StateSingleAwaitingTags StateCode = 0x8
	// StateBatchAwaitingTags accumulates tags for every collected sticker.
	StateBatchAwaitingTags StateCode = 0x9
	// StateMassEditAwaitingRemove accumulates tags to remove.
	StateMassEditAwaitingRemove StateCode = 0xa
	// StateMassEditAwaitingAdd accumulates tags to add.
	StateMassEditAwaitingAdd StateCode = 0xb
)

var stateNames = map[StateCode]string{
	StateIdle:                   "idle",
	StateRemoveTagSet:           "remove_tag_set",
	StateRemoveMultiTagSet:      "remove_multi_tag_set",
	StateMassEditCollecting:     "mass_edit_collecting",
	StateDeleteSticker:          "delete_sticker",
	StateReplaceTags:            "replace_tags",
	StateBatchCollecting:        "batch_collecting",
	StateDeleteMultipleStickers: "delete_multiple_stickers",
	StateSingleAwaitingTags:     "single_awaiting_tags",
	StateBatchAwaitingTags:      "batch_awaiting_tags",
	StateMassEditAwaitingRemove: "mass_edit_awaiting_remove",
	StateMassEditAwaitingAdd:    "mass_edit_awaiting_add",
}

// Valid reports whether c belongs to the closed set of codes.
func (c StateCode) Valid() bool {
	_, ok := stateNames[c]
	return ok
}

// Reserved reports whether c is a defined code that no flow uses yet.
func (c StateCode) Reserved() bool {
	return c.Flow() == FlowReserved
}

func (c StateCode) String() string {
	if name, ok := stateNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// Flow groups state codes that belong to one interaction.
type Flow int

const (
	FlowNone Flow = iota
	FlowSingle
	FlowBatch
	FlowMassEdit
	FlowReserved
)

func (f Flow) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowSingle:
		return "single"
	case FlowBatch:
		return "batch"
	case FlowMassEdit:
		return "mass_edit"
	default:
		return "reserved"
	}
}

// Flow returns the flow c belongs to.
func (c StateCode) Flow() Flow {
	switch c {
	case StateIdle:
		return FlowNone
	case StateSingleAwaitingTags:
		return FlowSingle
	case StateBatchCollecting, StateBatchAwaitingTags:
		return FlowBatch
	case StateMassEditCollecting, StateMassEditAwaitingRemove, StateMassEditAwaitingAdd:
		return FlowMassEdit
	default:
		return FlowReserved
	}
}

var (
	// ErrUnknownStateCode is returned when a stored status names a code outside the closed set.
	ErrUnknownStateCode = errors.New("unknown state code")
	// ErrInvalidState is returned when a state breaks a structural invariant.
	ErrInvalidState = errors.New("invalid user state")
)

// UserState is the payload persisted as a user entry's status.
type UserState struct {
	Code          StateCode        `json:"stateCode"`
	SingleSticker *domain.Sticker  `json:"singleSticker,omitempty"`
	Stickers      []domain.Sticker `json:"stickers"`
	TagsToAdd     []string         `json:"tags_to_add"`
	TagsToRemove  []string         `json:"tags_to_remove"`
	// MessagesToDelete is the cleanup ledger drained at every flow boundary.
	MessagesToDelete []int `json:"messages_to_delete"`
}

// NewIdle returns an idle state with empty accumulators.
func NewIdle() UserState {
	return UserState{
		Code:             StateIdle,
		Stickers:         []domain.Sticker{},
		TagsToAdd:        []string{},
		TagsToRemove:     []string{},
		MessagesToDelete: []int{},
	}
}

// ParseStatus decodes a stored status. An empty status is an idle user.
func ParseStatus(status string) (UserState, error) {
	if strings.TrimSpace(status) == "" {
		return NewIdle(), nil
	}

	var head struct {
		Code *StateCode `json:"stateCode"`
	}
	if err := json.Unmarshal([]byte(status), &head); err != nil {
		return UserState{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if head.Code == nil {
		return UserState{}, fmt.Errorf("%w: stateCode is missing", ErrUnknownStateCode)
	}

	var st UserState
	if err := json.Unmarshal([]byte(status), &st); err != nil {
		return UserState{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	st.normalize()

	if err := st.Validate(); err != nil {
		return UserState{}, err
	}

	return st, nil
}

// Encode validates st and serializes it for storage.
func (s UserState) Encode() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	s.normalize()
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode user state: %w", err)
	}
	return string(raw), nil
}

// Validate checks the invariants every stored state must hold.
func (s UserState) Validate() error {
	if !s.Code.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownStateCode, int(s.Code))
	}

	if s.Code == StateSingleAwaitingTags && s.SingleSticker == nil {
		return fmt.Errorf("%w: %s without a sticker", ErrInvalidState, s.Code)
	}
	if s.Code != StateSingleAwaitingTags && s.SingleSticker != nil {
		return fmt.Errorf("%w: sticker held outside single tagging in %s", ErrInvalidState, s.Code)
	}

	if s.Code == StateIdle && (len(s.Stickers) > 0 || len(s.TagsToAdd) > 0 || len(s.TagsToRemove) > 0) {
		return fmt.Errorf("%w: idle state carries flow data", ErrInvalidState)
	}

	return nil
}

// InFlow reports whether the user is somewhere other than idle.
func (s UserState) InFlow() bool {
	return s.Code != StateIdle
}

// Enter starts a flow at code with empty accumulators. The ledger is kept.
func (s *UserState) Enter(code StateCode) {
	s.Code = code
	s.SingleSticker = nil
	s.Stickers = []domain.Sticker{}
	s.TagsToAdd = []string{}
	s.TagsToRemove = []string{}
	if s.MessagesToDelete == nil {
		s.MessagesToDelete = []int{}
	}
}

// Reset returns to idle and clears every accumulator. The ledger is kept.
func (s *UserState) Reset() {
	s.Enter(StateIdle)
}

// Queue appends message ids to the cleanup ledger, skipping zero ids.
func (s *UserState) Queue(ids ...int) {
	for _, id := range ids {
		if id != 0 {
			s.MessagesToDelete = append(s.MessagesToDelete, id)
		}
	}
}

// Drain empties the ledger and returns what it held.
func (s *UserState) Drain() []int {
	drained := s.MessagesToDelete
	s.MessagesToDelete = []int{}
	return drained
}

// Clone returns a deep copy of s.
func (s UserState) Clone() UserState {
	out := s
	if s.SingleSticker != nil {
		sticker := *s.SingleSticker
		out.SingleSticker = &sticker
	}
	out.Stickers = append([]domain.Sticker{}, s.Stickers...)
	out.TagsToAdd = append([]string{}, s.TagsToAdd...)
	out.TagsToRemove = append([]string{}, s.TagsToRemove...)
	out.MessagesToDelete = append([]int{}, s.MessagesToDelete...)
	return out
}

func (s *UserState) normalize() {
	if s.Stickers == nil {
		s.Stickers = []domain.Sticker{}
	}
	if s.TagsToAdd == nil {
		s.TagsToAdd = []string{}
	}
	if s.TagsToRemove == nil {
		s.TagsToRemove = []string{}
	}
	if s.MessagesToDelete == nil {
		s.MessagesToDelete = []int{}
	}
}
