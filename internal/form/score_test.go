package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answerAll(t *testing.T, s State, sec Section, v Verdict) State {
	t.Helper()
	for _, it := range ItemsOf(s.Sheet, sec) {
		var err error
		s, err = s.Apply(SetVerdict{Item: it.Key, Verdict: v})
		require.NoError(t, err)
	}
	return s
}

// completeState returns a state that passes every validator with both gates
// answered no.
func completeState(t *testing.T) State {
	t.Helper()
	s, err := newState().ApplyAll(
		SetIdentification{FieldFullName, "João Pereira"},
		SetIdentification{FieldNationalID, "52998224725"},
		SetIdentification{FieldRole, "Técnico de campo"},
		SetGate{Section: AerialPPE, Gate: GateNo},
		SetGate{Section: ElectricalPPE, Gate: GateNo},
		SetDeclaration{Accepted: true},
	)
	require.NoError(t, err)
	s = answerAll(t, s, BasicPPE, Approved)
	return answerAll(t, s, GeneralInspection, Approved)
}

func TestCompletionOfUngatedSection(t *testing.T) {
	s := newState()
	for i, it := range s.Basic.Items() {
		sc := ScoreSection(s.Sheet, BasicPPE)
		assert.Equal(t, 8, sc.Required)
		assert.InDelta(t, float64(i)/8, sc.Completion, 1e-9)
		assert.False(t, sc.Completion == 1)

		var err error
		s, err = s.Apply(SetVerdict{Item: it.Key, Verdict: Rejected})
		require.NoError(t, err)
	}
	sc := ScoreSection(s.Sheet, BasicPPE)
	assert.Equal(t, 1.0, sc.Completion)
	assert.False(t, sc.Approved)
}

func TestBasicSectionWithNotApplicableIsApproved(t *testing.T) {
	s := answerAll(t, newState(), BasicPPE, Approved)
	s, err := s.ApplyAll(
		SetVerdict{Item: KeySunscreen, Verdict: NotApplicable},
		SetVerdict{Item: KeyHearingProtection, Verdict: NotApplicable},
	)
	require.NoError(t, err)

	sc := ScoreSection(s.Sheet, BasicPPE)
	assert.Equal(t, Tally{Approved: 6, NotApplicable: 2}, sc.Tally)
	assert.Equal(t, 8, sc.Answered)
	assert.Equal(t, 8, sc.Required)
	assert.Equal(t, 1.0, sc.Completion)
	assert.True(t, sc.Approved)
}

func TestGatePendingContributesNothing(t *testing.T) {
	s := newState()
	sc := ScoreSection(s.Sheet, AerialPPE)
	assert.True(t, sc.GatePending)
	assert.Zero(t, sc.Required)
	assert.Zero(t, sc.Completion)
	assert.False(t, sc.Approved)

	sum := Evaluate(s.Sheet)
	assert.Equal(t, 8+4, sum.Required, "only basic and general count while gates are open")
}

func TestGateNoCountsAsNotApplicable(t *testing.T) {
	s, err := newState().Apply(SetGate{Section: AerialPPE, Gate: GateNo})
	require.NoError(t, err)

	sc := ScoreSection(s.Sheet, AerialPPE)
	assert.False(t, sc.Active)
	assert.Equal(t, Tally{NotApplicable: 4}, sc.Tally)
	assert.Equal(t, 4, sc.Required)
	assert.Equal(t, 1.0, sc.Completion)
	assert.True(t, sc.Approved)
}

func TestTotalStableAcrossGateChoices(t *testing.T) {
	off := completeState(t)

	on, err := off.ApplyAll(
		SetGate{Section: AerialPPE, Gate: GateYes},
		SetGate{Section: ElectricalPPE, Gate: GateYes},
	)
	require.NoError(t, err)
	on = answerAll(t, on, AerialPPE, Approved)
	on = answerAll(t, on, ElectricalPPE, Approved)

	a, b := Evaluate(off.Sheet), Evaluate(on.Sheet)
	assert.Equal(t, 19, a.Required)
	assert.Equal(t, a.Required, b.Required)
	assert.Equal(t, OutcomeApproved, a.Outcome)
	assert.Equal(t, OutcomeApproved, b.Outcome)
	assert.Equal(t, 7, a.Tally.NotApplicable)
	assert.Zero(t, b.Tally.NotApplicable)
}

func TestOneRejectedItemReprovesInspection(t *testing.T) {
	s, err := completeState(t).Apply(SetVerdict{Item: KeyGloves, Verdict: Rejected})
	require.NoError(t, err)

	sum := Evaluate(s.Sheet)
	assert.False(t, sum.Approved)
	assert.Equal(t, OutcomeReproved, sum.Outcome)
	assert.False(t, sum.Section(BasicPPE).Approved)
	assert.True(t, sum.Section(GeneralInspection).Approved)
}

func TestIncompleteWithoutRejections(t *testing.T) {
	sum := Evaluate(newState().Sheet)
	assert.Equal(t, OutcomeIncomplete, sum.Outcome)
	assert.False(t, sum.Approved)
	assert.Zero(t, sum.Completion)
}

func TestIdentificationAndConclusionScores(t *testing.T) {
	s := newState()
	id := ScoreSection(s.Sheet, Identification)
	assert.Equal(t, 4, id.Required)
	assert.Equal(t, 1, id.Answered, "region is seeded from the request")
	assert.False(t, id.Approved)

	c := ScoreSection(s.Sheet, Conclusion)
	assert.Equal(t, 1.0, c.Completion)
	assert.True(t, c.Approved)
}
