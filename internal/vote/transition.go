package vote

// Transition is the labelled effect of a vote click.
type Transition int

const (
	Upvote Transition = iota
	UndoUpvote
	Downvote
	UndoDownvote
)

func (t Transition) String() string {
	switch t {
	case Upvote:
		return "upvote"
	case UndoUpvote:
		return "undo-upvote"
	case Downvote:
		return "downvote"
	case UndoDownvote:
		return "undo-downvote"
	}
	return "unknown"
}

// Button is the button whose form a transition submits.
func (t Transition) Button() Button {
	if t == Upvote || t == UndoUpvote {
		return Up
	}
	return Down
}

// transitionFor derives the transition for a click on b given the current
// modes. An active button undoes its own vote.
func transitionFor(b Button, up, down Mode) Transition {
	if b == Up {
		if up == Active {
			return UndoUpvote
		}
		return Upvote
	}
	if down == Active {
		return UndoDownvote
	}
	return Downvote
}

// Delta is the score change t causes when the button opposite to the one
// it acts on is in mode other. Cancelling an opposite vote adds one more.
func Delta(t Transition, other Mode) int {
	switch t {
	case Upvote:
		if other == Active {
			return 2
		}
		return 1
	case UndoUpvote:
		return -1
	case Downvote:
		if other == Active {
			return -2
		}
		return -1
	case UndoDownvote:
		return 1
	}
	return 0
}

// apply returns the modes after t. It does not check preconditions.
func apply(t Transition, up, down Mode) (Mode, Mode) {
	switch t {
	case Upvote:
		return Active, Inactive
	case UndoUpvote:
		return Inactive, down
	case Downvote:
		return Inactive, Active
	case UndoDownvote:
		return up, Inactive
	}
	return up, down
}
