package chat

// StaleWarning is surfaced while a built session no longer matches the configuration.
const StaleWarning = "Settings have changed. Please rebuild the chatbot to apply changes."

// Tracker records whether the live session still reflects the declared configuration.
//
// Dirty starts false and flips on every tracked edit; a successful rebuild clears it.
// Built flips to true on the first successful rebuild and never reverts.
type Tracker struct {
	dirty bool
	built bool
}

// MarkEdited records an edit to a tracked configuration field.
func (t *Tracker) MarkEdited() {
	t.dirty = true
}

// MarkRebuilt records a successful rebuild.
func (t *Tracker) MarkRebuilt() {
	t.dirty = false
	t.built = true
}

func (t Tracker) Dirty() bool { return t.dirty }

func (t Tracker) Built() bool { return t.built }

// State names the dirty bit for API payloads.
func (t Tracker) State() string {
	if t.dirty {
		return "dirty"
	}
	return "clean"
}

// Warning returns StaleWarning when the built session is out of date, else "".
func (t Tracker) Warning() string {
	if t.dirty && t.built {
		return StaleWarning
	}
	return ""
}
