package domain

import "strconv"

// ParticipantID is assigned by the transport at connect time.
// Ids grow monotonically and are never reused within a session.
type ParticipantID uint64

func (id ParticipantID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseParticipantID parses the decimal form produced by String.
func ParseParticipantID(s string) (ParticipantID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ParticipantID(v), nil
}
