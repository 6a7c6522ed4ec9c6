// internal/ai/mcts.go

// Package ai provides the MCTS move advisor used as the AI opponent.
package ai

import (
	"math"
	"math/rand"
	"time"

	"github.com/lanegames/gamesvc/internal/engine"
	"github.com/lanegames/gamesvc/internal/gameerr"
)

// defaultPlayoutCap bounds random playouts for rulesets that don't report a
// maximum move count, so malformed states still terminate.
const defaultPlayoutCap = 512

// moveBounded is implemented by rulesets with a known maximum game length.
type moveBounded interface {
	MaxMoves() int
}

// Result summarizes one search: the recommended move plus the visit and
// win-rate statistics callers use for confidence display.
type Result struct {
	BestMove   engine.Document `json:"best_move"`
	Visits     int             `json:"visits"`
	WinRate    float64         `json:"win_rate"`
	MoveScores map[int]float64 `json:"move_scores"`
	MoveVisits map[int]int     `json:"move_visits"`
	ThinkingMS float64         `json:"thinking_time_ms"`
}

// node is one position in the ephemeral search tree. States are snapshots:
// ApplyMove copies, so concurrent searches over the same root are safe.
type node struct {
	state      engine.State
	parent     *node
	move       engine.Move
	moveIdx    int
	children   []*node
	untried    []engine.Move
	untriedIdx []int
	visits     int
	wins       float64
}

func (n *node) winRate() float64 {
	if n.visits == 0 {
		return 0
	}
	return n.wins / float64(n.visits)
}

// ucb1 balances exploitation (win rate) against exploration of
// under-visited children. Unvisited children rank above everything.
func (n *node) ucb1(c float64) float64 {
	if n.visits == 0 {
		return math.Inf(1)
	}
	return n.winRate() + c*math.Sqrt(math.Log(float64(n.parent.visits))/float64(n.visits))
}

// Advisor runs MCTS searches against any registered ruleset.
type Advisor struct {
	factory     *engine.Factory
	exploration float64
	budgets     map[Tier]int
}

func NewAdvisor(factory *engine.Factory, budgets map[Tier]int) *Advisor {
	if budgets == nil {
		budgets = DefaultBudgets()
	}
	return &Advisor{
		factory:     factory,
		exploration: math.Sqrt2,
		budgets:     budgets,
	}
}

// Iterations returns the search budget for a difficulty tier.
func (a *Advisor) Iterations(t Tier) int {
	return a.budgets[t]
}

// SearchMove runs the four MCTS phases for the given iteration budget and
// returns the root child with the most visits. One legal move short-circuits
// the search; zero legal moves yields an empty zero-confidence result.
func (a *Advisor) SearchMove(gameType string, stateDoc engine.Document, playerID string, iterations int) (*Result, error) {
	game, err := a.factory.Create(gameType)
	if err != nil {
		return nil, err
	}
	state, err := game.StateFromDocument(stateDoc)
	if err != nil {
		return nil, err
	}
	if playerID == "" {
		return nil, gameerr.Validation("player_id is required")
	}

	start := time.Now()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	legal := game.LegalMoves(state, playerID)
	if len(legal) == 0 {
		return &Result{MoveScores: map[int]float64{}, MoveVisits: map[int]int{}}, nil
	}
	if len(legal) == 1 {
		return &Result{
			BestMove:   legal[0].Document(),
			Visits:     1,
			WinRate:    0.5,
			MoveScores: map[int]float64{0: 0.5},
			MoveVisits: map[int]int{0: 1},
		}, nil
	}

	if iterations < 1 {
		iterations = 1
	}

	root := &node{state: state, untried: legal}
	root.untriedIdx = make([]int, len(legal))
	for i := range legal {
		root.untriedIdx[i] = i
	}

	playoutCap := defaultPlayoutCap
	if mb, ok := game.(moveBounded); ok {
		playoutCap = mb.MaxMoves()
	}

	for i := 0; i < iterations; i++ {
		n := root

		// Selection: descend by UCB1 until a node with untried moves.
		for len(n.untried) == 0 && len(n.children) > 0 {
			n = a.selectChild(n)
		}

		// Expansion: attach one random untried move.
		if len(n.untried) > 0 {
			n = a.expand(n, game, rng)
		}

		// Simulation: random playout scored from the acting player's view.
		outcome := a.simulate(game, n.state, playerID, playoutCap, rng)

		// Backpropagation with alternating perspective.
		backpropagate(n, outcome)
	}

	best := root.children[0]
	for _, child := range root.children[1:] {
		if child.visits > best.visits {
			best = child
		}
	}

	scores := make(map[int]float64, len(root.children))
	visits := make(map[int]int, len(root.children))
	for _, child := range root.children {
		scores[child.moveIdx] = child.winRate()
		visits[child.moveIdx] = child.visits
	}

	return &Result{
		BestMove:   best.move.Document(),
		Visits:     root.visits,
		WinRate:    best.winRate(),
		MoveScores: scores,
		MoveVisits: visits,
		ThinkingMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

func (a *Advisor) selectChild(n *node) *node {
	best := n.children[0]
	bestVal := best.ucb1(a.exploration)
	for _, child := range n.children[1:] {
		if v := child.ucb1(a.exploration); v > bestVal {
			best, bestVal = child, v
		}
	}
	return best
}

func (a *Advisor) expand(n *node, game engine.Game, rng *rand.Rand) *node {
	i := rng.Intn(len(n.untried))
	move := n.untried[i]
	moveIdx := n.untriedIdx[i]
	n.untried = append(n.untried[:i], n.untried[i+1:]...)
	n.untriedIdx = append(n.untriedIdx[:i], n.untriedIdx[i+1:]...)

	mover := game.CurrentPlayerID(n.state)
	newState, err := game.ApplyMove(n.state, move, mover)
	if err != nil {
		// Untried moves come from LegalMoves, so this only fires on a
		// ruleset bug; treat the node as a dead end.
		return n
	}

	child := &node{state: newState, parent: n, move: move, moveIdx: moveIdx}
	nextPlayer := game.CurrentPlayerID(newState)
	child.untried = game.LegalMoves(newState, nextPlayer)
	child.untriedIdx = make([]int, len(child.untried))
	for i := range child.untried {
		child.untriedIdx[i] = i
	}
	n.children = append(n.children, child)
	return child
}

// simulate plays uniformly random legal moves until the game ends, capped
// to guarantee termination. Returns +1 win / 0 draw / -1 loss for
// originalPlayer.
func (a *Advisor) simulate(game engine.Game, state engine.State, originalPlayer string, cap int, rng *rand.Rand) int {
	current := state
	for i := 0; i < cap; i++ {
		if status := game.Status(current); status.Terminal() {
			winner, ok := game.WinnerID(current)
			switch {
			case !ok:
				return 0
			case winner == originalPlayer:
				return 1
			default:
				return -1
			}
		}
		mover := game.CurrentPlayerID(current)
		legal := game.LegalMoves(current, mover)
		if len(legal) == 0 {
			return 0
		}
		next, err := game.ApplyMove(current, legal[rng.Intn(len(legal))], mover)
		if err != nil {
			return 0
		}
		current = next
	}
	return 0
}

// backpropagate walks to the root adding win=1.0 / draw=0.5 / loss=0.0 and
// flipping the outcome sign at each step, since players alternate levels.
func backpropagate(n *node, outcome int) {
	for cur := n; cur != nil; cur = cur.parent {
		cur.visits++
		switch outcome {
		case 1:
			cur.wins += 1.0
		case 0:
			cur.wins += 0.5
		}
		outcome = -outcome
	}
}
