package simulation

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMoveNoCandidates(t *testing.T) {
	Convey("Given a controller with one train admitted", t, func() {
		c := NewController()
		So(c.Admit("F1", 3, 11), ShouldBeNil)

		Convey("move with no identifiers advances nothing", func() {
			n, err := c.Move()
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)

			pos, _ := c.Train("F1")
			So(pos, ShouldEqual, Section(3))
		})
	})
}

func TestMoveUnknownTrain(t *testing.T) {
	Convey("Given a controller with no trains", t, func() {
		c := NewController()

		Convey("move against an unknown identifier is an argument error and advances nothing", func() {
			n, err := c.Move("ghost")
			So(err, ShouldNotBeNil)
			So(IsArgumentError(err), ShouldBeTrue)
			So(n, ShouldEqual, 0)
		})
	})
}

func TestBasicTraversalScenario(t *testing.T) {
	Convey("Given F1 admitted at 3 bound for 11", t, func() {
		c := NewController()
		So(c.Admit("F1", 3, 11), ShouldBeNil)

		Convey("The first move advances it to 7", func() {
			n, err := c.Move("F1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			pos, _ := c.Train("F1")
			So(pos, ShouldEqual, Section(7))

			Convey("The second move advances it to 11", func() {
				n, err := c.Move("F1")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				pos, _ := c.Train("F1")
				So(pos, ShouldEqual, Section(11))

				Convey("The third move halts at the destination and confirms nothing", func() {
					n, err := c.Move("F1")
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 0)
					pos, _ := c.Train("F1")
					So(pos, ShouldEqual, Section(11))

					Convey("The fourth move exits the train", func() {
						n, err := c.Move("F1")
						So(err, ShouldBeNil)
						So(n, ShouldEqual, 1)
						pos, _ := c.Train("F1")
						So(pos, ShouldEqual, TrainAbsent)
					})
				})
			})
		})
	})
}

func TestHeadOnDeadlockScenario(t *testing.T) {
	Convey("Given T1 at 3 bound for 7 and T2 at 7 bound for 3", t, func() {
		c := NewController()
		So(c.Admit("T1", 3, 7), ShouldBeNil)
		So(c.Admit("T2", 7, 3), ShouldBeNil)

		Convey("move on both confirms neither, every time", func() {
			n, err := c.Move("T1", "T2")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)

			p1, _ := c.Train("T1")
			p2, _ := c.Train("T2")
			So(p1, ShouldEqual, Section(3))
			So(p2, ShouldEqual, Section(7))

			n, err = c.Move("T1", "T2")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})
	})
}

func TestCrossingInterlockScenario(t *testing.T) {
	Convey("Given F1 at 3 bound for 4 and P1 at 1 bound for 9", t, func() {
		c := NewController()
		So(c.Admit("F1", 3, 4), ShouldBeNil)
		So(c.Admit("P1", 1, 9), ShouldBeNil)

		Convey("The first tick advances only P1, onto 5", func() {
			n, err := c.Move("F1", "P1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			posF1, _ := c.Train("F1")
			posP1, _ := c.Train("P1")
			So(posF1, ShouldEqual, Section(3))
			So(posP1, ShouldEqual, Section(5))

			Convey("F1 alone is still refused while 5 is passenger-occupied", func() {
				n, err := c.Move("F1")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)

				Convey("Once P1 clears the crossing-sensitive sections, F1 may cross", func() {
					n, err = c.Move("P1") // 5 -> 6
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 1)
					n, err = c.Move("P1") // 6 -> 10
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 1)

					n, err = c.Move("F1")
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 1)
					posF1, _ := c.Train("F1")
					So(posF1, ShouldEqual, Section(4))
				})
			})
		})
	})
}

func TestChainUnblockingRejectsOccupiedEntry(t *testing.T) {
	Convey("Given A admitted at 2 and advanced once to section 5", t, func() {
		c := NewController()
		So(c.Admit("A", 2, 9), ShouldBeNil)
		n, err := c.Move("A") // 2 -> 5
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 1)
		pos, _ := c.Train("A")
		So(pos, ShouldEqual, Section(5))

		Convey("Admitting B at the still-occupied section 5 is rejected", func() {
			err := c.Admit("B", 5, 2)
			So(err, ShouldNotBeNil)
			So(IsStateError(err), ShouldBeTrue)
		})
	})
}

func TestChainUnblockingScenario(t *testing.T) {
	Convey("Given A at 5 bound for 2, B at 6 bound for 5, C at 10 bound for 6", t, func() {
		c := NewController()
		So(c.Admit("A", 5, 2), ShouldBeNil)
		So(c.Admit("B", 6, 5), ShouldBeNil)
		So(c.Admit("C", 10, 6), ShouldBeNil)

		Convey("A single move confirms all three, chained", func() {
			n, err := c.Move("A", "B", "C")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)

			posA, _ := c.Train("A")
			posB, _ := c.Train("B")
			posC, _ := c.Train("C")
			So(posA, ShouldEqual, Section(2))
			So(posB, ShouldEqual, Section(5))
			So(posC, ShouldEqual, Section(6))
		})
	})
}

func TestTieBreakByIdentifierScenario(t *testing.T) {
	Convey("Given T533 at 3->11, T534 at 11->7, T532 at 4->3", t, func() {
		c := NewController()
		So(c.Admit("T533", 3, 11), ShouldBeNil)
		So(c.Admit("T534", 11, 7), ShouldBeNil)
		So(c.Admit("T532", 4, 3), ShouldBeNil)

		Convey("move confirms T532 and T533 but leaves T534 blocked at 11", func() {
			n, err := c.Move("T532", "T533", "T534")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			pos532, _ := c.Train("T532")
			pos533, _ := c.Train("T533")
			pos534, _ := c.Train("T534")
			So(pos532, ShouldEqual, Section(3))
			So(pos533, ShouldEqual, Section(7))
			So(pos534, ShouldEqual, Section(11))
		})
	})
}

func TestTwoStepExitScenario(t *testing.T) {
	Convey("Given P1 at 1 bound for 5", t, func() {
		c := NewController()
		So(c.Admit("P1", 1, 5), ShouldBeNil)

		n, err := c.Move("P1")
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 1)
		pos, _ := c.Train("P1")
		So(pos, ShouldEqual, Section(5))

		Convey("The next move halts and marks the train for exit", func() {
			n, err := c.Move("P1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
			pos, _ := c.Train("P1")
			So(pos, ShouldEqual, Section(5))

			Convey("The move after that exits the train", func() {
				n, err := c.Move("P1")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				pos, _ := c.Train("P1")
				So(pos, ShouldEqual, TrainAbsent)
			})
		})
	})
}

func TestSustainedDeadlockStaysAtZero(t *testing.T) {
	Convey("Given a persistent head-on deadlock", t, func() {
		c := NewController()
		So(c.Admit("T1", 3, 7), ShouldBeNil)
		So(c.Admit("T2", 7, 3), ShouldBeNil)

		Convey("Repeated move calls keep returning 0 and leave occupancy untouched", func() {
			for i := 0; i < 5; i++ {
				n, err := c.Move("T1", "T2")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			}
			occ3, _ := c.Section(3)
			occ7, _ := c.Section(7)
			So(occ3, ShouldEqual, "T1")
			So(occ7, ShouldEqual, "T2")
		})
	})
}

func TestForecastDoesNotMutateState(t *testing.T) {
	Convey("Given F1 admitted at 3 bound for 11", t, func() {
		c := NewController()
		So(c.Admit("F1", 3, 11), ShouldBeNil)

		Convey("Forecast reports the intended hop without committing it", func() {
			intents, err := c.Forecast("F1")
			So(err, ShouldBeNil)
			So(len(intents), ShouldEqual, 1)
			So(intents[0].Action, ShouldEqual, ActionHop)
			So(intents[0].Target, ShouldEqual, Section(7))
			So(intents[0].Confirmed, ShouldBeTrue)

			pos, _ := c.Train("F1")
			So(pos, ShouldEqual, Section(3))

			occ, _ := c.Section(3)
			So(occ, ShouldEqual, "F1")
		})

		Convey("Forecast at the destination does not mark the train for exit", func() {
			c2 := NewController()
			So(c2.Admit("P1", 1, 5), ShouldBeNil)
			_, err := c2.Move("P1")
			So(err, ShouldBeNil)

			intents, err := c2.Forecast("P1")
			So(err, ShouldBeNil)
			So(intents[0].Action, ShouldEqual, ActionWait)

			// A real move afterwards must still see the first halt, not an
			// already-marked train, proving Forecast left the flag alone.
			n, err := c2.Move("P1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
			n, err = c2.Move("P1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})
	})
}

func TestCrossingRefusalEventFires(t *testing.T) {
	Convey("Given F1 at 3 bound for 4 and P1 holding crossing-sensitive section 5", t, func() {
		c := NewController()
		So(c.Admit("F1", 3, 4), ShouldBeNil)
		So(c.Admit("P1", 5, 9), ShouldBeNil)

		var refusals []*CrossingRefusal
		c.AddListener(func(e *Event) {
			if e.Name == CrossingRefusalEvent {
				refusals = append(refusals, e.Object.(*CrossingRefusal))
			}
		})

		Convey("Moving only F1 refuses the crossing and reports it", func() {
			n, err := c.Move("F1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
			So(len(refusals), ShouldEqual, 1)
			So(refusals[0].Train.ID, ShouldEqual, "F1")
		})
	})
}

func TestTickCommittedEventCarriesTally(t *testing.T) {
	Convey("Given A at 5 bound for 2, B at 6 bound for 5, C at 10 bound for 6", t, func() {
		c := NewController()
		So(c.Admit("A", 5, 2), ShouldBeNil)
		So(c.Admit("B", 6, 5), ShouldBeNil)
		So(c.Admit("C", 10, 6), ShouldBeNil)

		var tallies []*TickCommitted
		c.AddListener(func(e *Event) {
			if e.Name == TickCommittedEvent {
				tallies = append(tallies, e.Object.(*TickCommitted))
			}
		})

		Convey("A single move reports three confirmations, two of them chain-unblocked", func() {
			n, err := c.Move("A", "B", "C")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)
			So(len(tallies), ShouldEqual, 1)
			So(tallies[0].Confirmed, ShouldEqual, 3)
			So(tallies[0].ChainUnblocked, ShouldEqual, 2)
		})
	})
}

func TestTickCommittedEventNotSentForEmptyCandidates(t *testing.T) {
	Convey("Given a controller with no trains", t, func() {
		c := NewController()

		var fired bool
		c.AddListener(func(e *Event) {
			if e.Name == TickCommittedEvent {
				fired = true
			}
		})

		Convey("Move with no candidates emits no tick events at all", func() {
			n, err := c.Move()
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
			So(fired, ShouldBeFalse)
		})
	})
}

func TestMoveIsDeterministic(t *testing.T) {
	Convey("Given the same sequence of admissions and moves run twice", t, func() {
		run := func() []int {
			c := NewController()
			c.Admit("T533", 3, 11)
			c.Admit("T534", 11, 7)
			c.Admit("T532", 4, 3)
			var counts []int
			n, _ := c.Move("T532", "T533", "T534")
			counts = append(counts, n)
			n, _ = c.Move("T532", "T533", "T534")
			counts = append(counts, n)
			return counts
		}

		Convey("Both runs produce identical advancement counts", func() {
			So(run(), ShouldResemble, run())
		})
	})
}
