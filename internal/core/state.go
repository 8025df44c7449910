package core

// TransportState is the playback engine's current mode. It is distinct
// from any UI-level loading indicator.
type TransportState string

const (
	TransportIdle    TransportState = "idle"
	TransportLoading TransportState = "loading"
	TransportPlaying TransportState = "playing"
	TransportPaused  TransportState = "paused"
)

// RepeatMode controls what happens when a track finishes naturally.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// Next cycles off -> all -> one -> off.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// Valid reports whether m is a known repeat mode.
func (m RepeatMode) Valid() bool {
	switch m {
	case RepeatOff, RepeatAll, RepeatOne:
		return true
	}
	return false
}
