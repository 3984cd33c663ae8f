package mpc_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mpcdrive/internal/ad"
	"github.com/san-kum/mpcdrive/internal/mpc"
	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/solver"
	"github.com/san-kum/mpcdrive/internal/vehicle"
)

func newController(h mpc.Horizon) *mpc.Controller {
	c, err := mpc.New(h, mpc.DefaultWeights(), solver.NewALM(), nil)
	Expect(err).NotTo(HaveOccurred())
	return c
}

func stateFor(v float64, coeffs reference.Coeffs) vehicle.State[float64] {
	cte, epsi := reference.InitialErrors(coeffs)
	return vehicle.State[float64]{V: v, CTE: cte, EPsi: epsi}
}

var _ = Describe("Controller", func() {
	var (
		h    mpc.Horizon
		ctrl *mpc.Controller
	)

	BeforeEach(func() {
		h = mpc.DefaultHorizon()
		ctrl = newController(h)
	})

	Describe("output contract", func() {
		It("returns one actuation pair and N-1 predicted points", func() {
			coeffs := reference.Coeffs{0.5, 0.05, 0.001, 0}
			res, err := ctrl.Solve(stateFor(30, coeffs), coeffs)
			Expect(err).NotTo(HaveOccurred())

			flat := res.Flat()
			Expect(flat).To(HaveLen(2 + 2*(h.Steps-1)))
			Expect(flat[0]).To(Equal(res.Steering))
			Expect(flat[1]).To(Equal(res.Throttle))
			Expect(flat[2]).To(Equal(res.X[0]))
			Expect(flat[3]).To(Equal(res.Y[0]))
			Expect(flat[len(flat)-1]).To(Equal(res.Y[h.Steps-2]))
			Expect(res.Status).NotTo(Equal(solver.Failed))
		})

		It("rejects coefficient vectors of the wrong degree", func() {
			_, err := ctrl.Solve(vehicle.State[float64]{}, reference.Coeffs{1, 2})
			Expect(errors.Is(err, mpc.ErrCoeffs)).To(BeTrue())
		})

		It("rejects an invalid horizon", func() {
			bad := mpc.DefaultHorizon()
			bad.Steps = 2
			_, err := mpc.New(bad, mpc.DefaultWeights(), nil, nil)
			Expect(errors.Is(err, mpc.ErrHorizon)).To(BeTrue())
		})
	})

	Describe("straight path", func() {
		It("holds the wheel centred when already on the path at target speed", func() {
			coeffs := reference.Coeffs{0, 0, 0, 0}
			res, err := ctrl.Solve(stateFor(h.RefSpeed, coeffs), coeffs)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Status).To(Equal(solver.Converged))
			Expect(res.Steering).To(BeNumerically("~", 0, 1e-9))
			Expect(res.Throttle).To(BeNumerically("~", 0, 1e-3))
			for _, a := range res.AccelPlan {
				Expect(a).To(BeNumerically("~", 0, 1e-3))
			}
			Expect(res.Cost).To(BeNumerically("<", 1e-3))
			for _, y := range res.Y {
				Expect(y).To(BeNumerically("~", 0, 1e-9))
			}
			for i := 1; i < len(res.X); i++ {
				Expect(res.X[i]).To(BeNumerically(">", res.X[i-1]))
			}
		})

		It("accelerates when below the target speed", func() {
			coeffs := reference.Coeffs{0, 0, 0, 0}
			res, err := ctrl.Solve(stateFor(10, coeffs), coeffs)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Throttle).To(BeNumerically(">", 0))
			Expect(res.Steering).To(BeNumerically("~", 0, 1e-9))
		})
	})

	Describe("curved path", func() {
		coeffs := reference.Coeffs{2, 0.1, 0.01, 0.0005}

		It("steers toward a path on the left with negative steering", func() {
			res, err := ctrl.Solve(stateFor(20, coeffs), coeffs)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(solver.Converged))
			Expect(res.Steering).To(BeNumerically("<", -0.01))
		})

		It("steers toward a path on the right with positive steering", func() {
			right := reference.Coeffs{-2, -0.1, -0.01, -0.0005}
			res, err := ctrl.Solve(stateFor(20, right), right)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(solver.Converged))
			Expect(res.Steering).To(BeNumerically(">", 0.01))
		})

		It("keeps every actuation inside its bounds", func() {
			hard := reference.Coeffs{8, 1.5, 0.2, 0.01}
			res, err := ctrl.Solve(stateFor(40, hard), hard)
			Expect(err).NotTo(HaveOccurred())
			for t := range res.SteerPlan {
				Expect(res.SteerPlan[t]).To(BeNumerically(">=", -h.SteerLimit))
				Expect(res.SteerPlan[t]).To(BeNumerically("<=", h.SteerLimit))
				Expect(res.AccelPlan[t]).To(BeNumerically(">=", -h.AccelLimit))
				Expect(res.AccelPlan[t]).To(BeNumerically("<=", h.AccelLimit))
			}
		})

		It("pins step 0 to the given state", func() {
			s := stateFor(25, coeffs)
			res, err := ctrl.Solve(s, coeffs)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.States[0]).To(Equal(s))
		})

		It("returns a trajectory that follows the model with the delayed actuation", func() {
			res, err := ctrl.Solve(stateFor(25, coeffs), coeffs)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(solver.Converged))
			Expect(res.Violation).To(BeNumerically("<=", solver.DefaultOptions().ConstraintTolerance))

			p := h.Params()
			for t := 1; t < h.Steps; t++ {
				k, _ := mpc.ActuationIndex(t, h.DelaySteps)
				want := vehicle.Step[float64](ad.Float{}, p, coeffs, res.States[t-1], res.SteerPlan[k], res.AccelPlan[k])
				got := res.States[t]
				Expect(got.X).To(BeNumerically("~", want.X, 1e-6))
				Expect(got.Y).To(BeNumerically("~", want.Y, 1e-6))
				Expect(got.Psi).To(BeNumerically("~", want.Psi, 1e-6))
				Expect(got.V).To(BeNumerically("~", want.V, 1e-6))
				Expect(got.CTE).To(BeNumerically("~", want.CTE, 1e-6))
				Expect(got.EPsi).To(BeNumerically("~", want.EPsi, 1e-6))
			}
		})

		It("is deterministic for identical inputs", func() {
			s := stateFor(30, coeffs)
			Expect(h.Budget).To(Equal(mpc.DefaultHorizon().Budget))
			a, err := ctrl.Solve(s, coeffs)
			Expect(err).NotTo(HaveOccurred())
			b, err := newController(h).Solve(s, coeffs)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Flat()).To(Equal(a.Flat()))
		})

		It("does not modify the caller's coefficients", func() {
			c := coeffs.Clone()
			_, err := ctrl.Solve(stateFor(30, c), c)
			Expect(err).NotTo(HaveOccurred())
			Expect(c).To(Equal(coeffs))
		})
	})

	Describe("default budget", func() {
		cases := []struct {
			coeffs reference.Coeffs
			// sign of the expected first steering command, 0 when unchecked
			sign float64
		}{
			{reference.Coeffs{0, 0, 0, 0}, 0},
			{reference.Coeffs{2, 0.1, 0.01, 0.0005}, -1},
			{reference.Coeffs{8, 1.5, 0.2, 0.01}, -1},
			{reference.Coeffs{-3, -0.4, 0.02, -0.001}, 1},
		}

		for _, tc := range cases {
			for _, v := range []float64{0, 20, 50, 80} {
				It(fmt.Sprintf("converges for %v at speed %v", tc.coeffs, v), func() {
					res, err := ctrl.Solve(stateFor(v, tc.coeffs), tc.coeffs)
					Expect(err).NotTo(HaveOccurred())
					Expect(res.Status).To(Equal(solver.Converged))
					Expect(res.Elapsed).To(BeNumerically("<", h.Budget))
					Expect(res.Violation).To(BeNumerically("<=", solver.DefaultOptions().ConstraintTolerance))
					if tc.sign != 0 && v > 0 {
						Expect(res.Steering * tc.sign).To(BeNumerically(">", 0))
					}

					again, err := newController(h).Solve(stateFor(v, tc.coeffs), tc.coeffs)
					Expect(err).NotTo(HaveOccurred())
					Expect(again.Flat()).To(Equal(res.Flat()))
				})
			}
		}
	})
})
