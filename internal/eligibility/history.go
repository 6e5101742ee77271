package eligibility

// History is everything the evaluator knows about a student's record.
type History struct {
	Regularities []Regularity
	Attempts     []Attempt
	// Equivalences holds subject ids granted by equivalence.
	Equivalences []uint
}

// Latest returns the authoritative regularity of a subject: the one with the latest
// closing date, ties broken by the highest id.
func (h History) Latest(subjectID uint) (Regularity, bool) {
	var (
		latest Regularity
		found  bool
	)
	for _, reg := range h.Regularities {
		if reg.SubjectID != subjectID {
			continue
		}
		if !found {
			latest, found = reg, true
			continue
		}
		current := DateOnly(reg.ClosingDate)
		best := DateOnly(latest.ClosingDate)
		if current.After(best) || (current.Equal(best) && reg.ID > latest.ID) {
			latest = reg
		}
	}
	return latest, found
}

// Standing returns the effective situation of a subject. A passed final exam or a granted
// equivalence upgrades whatever the latest regularity says to approved.
func (h History) Standing(subjectID uint) (Situation, bool) {
	for _, id := range h.Equivalences {
		if id == subjectID {
			return SituationApproved, true
		}
	}
	for _, attempt := range h.Attempts {
		if attempt.SubjectID == subjectID && attempt.Outcome == OutcomeApproved {
			return SituationApproved, true
		}
	}
	reg, ok := h.Latest(subjectID)
	if !ok {
		return "", false
	}
	return reg.Situation, true
}

// AttemptsFor returns the attempts of a subject, optionally skipping one board.
func (h History) AttemptsFor(subjectID, skipBoardID uint) []Attempt {
	attempts := make([]Attempt, 0, len(h.Attempts))
	for _, attempt := range h.Attempts {
		if attempt.SubjectID != subjectID {
			continue
		}
		if skipBoardID != 0 && attempt.BoardID == skipBoardID {
			continue
		}
		attempts = append(attempts, attempt)
	}
	return attempts
}

// SubjectIDs lists every subject that has a regularity, attempt or equivalence.
func (h History) SubjectIDs() []uint {
	seen := map[uint]struct{}{}
	ids := make([]uint, 0)
	add := func(id uint) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, reg := range h.Regularities {
		add(reg.SubjectID)
	}
	for _, attempt := range h.Attempts {
		add(attempt.SubjectID)
	}
	for _, id := range h.Equivalences {
		add(id)
	}
	return ids
}
