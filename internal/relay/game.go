package relay

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/muesli/reflow/truncate"
)

// actionQueue is the relay state of one occupied slot.
type actionQueue struct {
	user           *User
	synced         bool
	dropped        bool
	desynched      bool
	pending        [][]byte
	lastData       time.Time
	timeoutNumber  int
	droppedPackets int
}

func (q *actionQueue) participating() bool {
	return q != nil && q.synced && !q.dropped && !q.desynched
}

func (q *actionQueue) resetRound(now time.Time) {
	q.dropped = false
	q.desynched = false
	q.pending = nil
	q.lastData = now
	q.timeoutNumber = 0
}

// Game is a room of players relaying input to each other. Slots are 1-based
// and stable: a departing player leaves a hole that the next join reuses.
type Game struct {
	id      int
	romName string
	created time.Time
	server  *Server
	flags   Flags
	clock   Clock
	lang    Localizer
	log     *slog.Logger

	mu                    sync.Mutex
	owner                 *User
	status                GameStatus
	slots                 []*actionQueue
	kicked                map[int]struct{}
	highestUserFrameDelay int
	actionsPerMessage     int
	frameSize             int
}

func newGame(id int, romName string, owner *User, s *Server) *Game {
	return &Game{
		id:      id,
		romName: romName,
		created: s.clock.Now(),
		server:  s,
		flags:   s.flags,
		clock:   s.clock,
		lang:    s.lang,
		log:     slog.Default().With("game_id", id),
		owner:   owner,
		status:  GameWaiting,
		kicked:  map[int]struct{}{},
	}
}

func (g *Game) ID() int              { return g.id }
func (g *Game) RomName() string      { return g.romName }
func (g *Game) CreatedAt() time.Time { return g.created }

func (g *Game) String() string {
	name := g.romName
	if utf8.RuneCountInString(name) > displayNameLength {
		name = truncate.String(name, displayNameLength) + "..."
	}
	return fmt.Sprintf("Game%d(%s)", g.id, name)
}

func (g *Game) Owner() *User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

func (g *Game) Status() GameStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Players returns the roster in slot order, skipping holes.
func (g *Game) Players() []*User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playersLocked()
}

func (g *Game) playersLocked() []*User {
	players := make([]*User, 0, len(g.slots))
	for _, q := range g.slots {
		if q != nil {
			players = append(players, q.user)
		}
	}
	return players
}

func (g *Game) activeLocked() []*User {
	var players []*User
	for _, q := range g.slots {
		if q.participating() {
			players = append(players, q.user)
		}
	}
	return players
}

func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.playersLocked())
}

// SlotCount is the length of the slot array, holes included.
func (g *Game) SlotCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.slots)
}

// PlayerNumber returns u's slot, or -1 when u is not in the game.
func (g *Game) PlayerNumber(u *User) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, q := range g.slots {
		if q != nil && q.user == u {
			return i + 1
		}
	}
	return -1
}

func (g *Game) HighestUserFrameDelay() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.highestUserFrameDelay
}

func (g *Game) IsSynced(slot int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if slot < 1 || slot > len(g.slots) || g.slots[slot-1] == nil {
		return false
	}
	return g.slots[slot-1].synced
}

func (g *Game) DroppedPackets(slot int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if slot < 1 || slot > len(g.slots) || g.slots[slot-1] == nil {
		return 0
	}
	return g.slots[slot-1].droppedPackets
}

func (g *Game) queueLocked(slot int, u *User) *actionQueue {
	if slot < 1 || slot > len(g.slots) {
		return nil
	}
	q := g.slots[slot-1]
	if q == nil || q.user != u {
		return nil
	}
	return q
}

func (g *Game) recomputeDelayLocked() {
	g.highestUserFrameDelay = 0
	for _, q := range g.slots {
		if q == nil {
			continue
		}
		if d := q.user.FrameDelay(); d > g.highestUserFrameDelay {
			g.highestUserFrameDelay = d
		}
	}
}

func (g *Game) sendLocked(recipients []*User, ev Event) {
	for _, p := range recipients {
		p.QueueEvent(ev)
	}
}

func (g *Game) actionError(op Op, kind ErrorKind, key string, args ...any) *ActionError {
	return newActionError(op, kind, g.lang.String(key, args...))
}

func (g *Game) join(u *User) (int, error) {
	g.mu.Lock()

	switch {
	case g.status == GameEnded:
		g.mu.Unlock()
		return 0, g.actionError(OpJoinGame, ErrNotFound, MsgJoinGameErrorDoesNotExist)
	case g.status != GameWaiting:
		g.mu.Unlock()
		return 0, g.actionError(OpJoinGame, ErrStateViolation, MsgJoinGameErrorAlreadyStarted)
	}
	if _, ok := g.kicked[u.id]; ok {
		g.mu.Unlock()
		return 0, g.actionError(OpJoinGame, ErrPolicyDenied, MsgJoinGameErrorKicked)
	}
	if len(g.playersLocked()) >= g.flags.MaxPlayersPerGame {
		g.mu.Unlock()
		return 0, g.actionError(OpJoinGame, ErrPolicyDenied, MsgJoinGameErrorFull)
	}

	q := &actionQueue{user: u}
	slot := 0
	for i, existing := range g.slots {
		if existing == nil {
			g.slots[i] = q
			slot = i + 1
			break
		}
	}
	if slot == 0 {
		g.slots = append(g.slots, q)
		slot = len(g.slots)
	}

	g.recomputeDelayLocked()
	g.sendLocked(g.playersLocked(), UserJoinedGameEvent{Game: g, User: u})
	g.mu.Unlock()

	g.log.Info("user joined game", "user", u.String(), "slot", slot)
	g.server.broadcastGameStatus(g)
	return slot, nil
}

// kick removes the target from the game and bars it from rejoining.
func (g *Game) kick(requester *User, targetID int) error {
	g.mu.Lock()
	if requester != g.owner && requester.AccessLevel() < AccessElevated {
		g.mu.Unlock()
		return g.actionError(OpGameKick, ErrPolicyDenied, MsgKickErrorNotOwner)
	}
	if requester.id == targetID {
		g.mu.Unlock()
		return g.actionError(OpGameKick, ErrStateViolation, MsgKickErrorSelf)
	}

	var target *User
	for _, q := range g.slots {
		if q != nil && q.user.id == targetID {
			target = q.user
			break
		}
	}
	if target == nil {
		g.mu.Unlock()
		return g.actionError(OpGameKick, ErrNotFound, MsgKickErrorUserNotFound)
	}
	g.kicked[targetID] = struct{}{}
	g.mu.Unlock()

	g.log.Info("kicking user", "requester", requester.String(), "target", target.String())
	g.Announce(g.lang.String(MsgGameKicked, g.romName), target)

	if err := target.QuitGame(); err != nil {
		return fmt.Errorf("kicking %s: %w", target, err)
	}
	return nil
}

// drop takes the slot out of the running round without vacating it.
func (g *Game) drop(u *User, slot int) error {
	g.mu.Lock()
	q := g.queueLocked(slot, u)
	if q == nil {
		g.mu.Unlock()
		return g.actionError(OpDropGame, ErrStateViolation, MsgDropGameErrorNotInGame)
	}
	changed := g.dropLocked(q, slot)
	g.mu.Unlock()

	if changed {
		g.server.broadcastGameStatus(g)
	}
	return nil
}

// dropLocked reports whether the game fell back to waiting.
func (g *Game) dropLocked(q *actionQueue, slot int) bool {
	if q.dropped {
		return false
	}
	q.dropped = true
	q.pending = nil

	g.sendLocked(g.playersLocked(), UserDroppedGameEvent{Game: g, User: q.user, PlayerNumber: slot})
	g.log.Info("user dropped game", "user", q.user.String(), "slot", slot)

	if g.status != GamePlaying {
		return false
	}
	if len(g.activeLocked()) == 0 {
		g.resetLocked(GameWaiting)
		// Desynched players never dropped themselves, so nothing else idles them.
		for _, p := range g.slots {
			if p != nil {
				p.user.setStatus(UserIdle)
			}
		}
		return true
	}
	g.flushLocked()
	return false
}

func (g *Game) resetLocked(status GameStatus) {
	now := g.clock.Now()
	g.status = status
	g.frameSize = 0
	for _, q := range g.slots {
		if q != nil {
			q.synced = false
			q.resetRound(now)
		}
	}
}

// quit vacates the user's slot. The game closes when nobody is left.
func (g *Game) quit(u *User, slot int) error {
	g.mu.Lock()
	q := g.queueLocked(slot, u)
	if q == nil {
		g.mu.Unlock()
		return g.actionError(OpQuitGame, ErrStateViolation, MsgQuitGameErrorNotInGame)
	}

	if g.status == GamePlaying {
		g.dropLocked(q, slot)
	}
	g.slots[slot-1] = nil

	if g.status != GamePlaying {
		g.trimLocked()
	}
	if g.owner == u {
		g.owner = nil
		if players := g.playersLocked(); len(players) > 0 {
			g.owner = players[0]
		}
	}
	g.recomputeDelayLocked()

	remaining := g.playersLocked()
	g.sendLocked(remaining, UserQuitGameEvent{Game: g, User: u})

	empty := len(remaining) == 0
	if empty {
		g.status = GameEnded
	} else if g.status == GamePlaying {
		g.flushLocked()
	}
	g.mu.Unlock()

	g.log.Info("user quit game", "user", u.String(), "slot", slot)
	if empty {
		g.server.closeGame(g)
	} else {
		g.server.broadcastGameStatus(g)
	}
	return nil
}

func (g *Game) trimLocked() {
	n := len(g.slots)
	for n > 0 && g.slots[n-1] == nil {
		n--
	}
	clear(g.slots[n:])
	g.slots = g.slots[:n]
}

// ready marks the slot synced. The round starts once every occupied slot is.
func (g *Game) ready(u *User, slot int) error {
	g.mu.Lock()
	if g.status != GameWaiting {
		g.mu.Unlock()
		return g.actionError(OpUserReady, ErrStateViolation, MsgReadyErrorNotWaiting)
	}
	q := g.queueLocked(slot, u)
	if q == nil {
		g.mu.Unlock()
		return g.actionError(OpUserReady, ErrStateViolation, MsgReadyErrorNotInGame)
	}
	// Frames are sized by the owner's connection, so everyone must match it.
	if g.owner != nil && u != g.owner && u.ConnectionType() != g.owner.ConnectionType() {
		ct, owner := u.ConnectionType(), g.owner.ConnectionType()
		g.mu.Unlock()
		return g.actionError(OpUserReady, ErrPolicyDenied, MsgReadyErrorConnectionMismatch, ct, owner)
	}
	q.synced = true

	for _, other := range g.slots {
		if other != nil && !other.synced {
			g.mu.Unlock()
			return nil
		}
	}

	now := g.clock.Now()
	g.status = GamePlaying
	g.frameSize = 0
	g.actionsPerMessage = 1
	if g.owner != nil {
		g.actionsPerMessage = max(g.owner.ConnectionType().ByteValue(), 1)
	}
	for _, other := range g.slots {
		if other != nil {
			other.resetRound(now)
		}
	}
	g.sendLocked(g.playersLocked(), GameStartedEvent{Game: g})
	g.mu.Unlock()

	g.log.Info("game started", "players", g.PlayerCount())
	g.server.broadcastGameStatus(g)
	return nil
}

func (g *Game) start(u *User) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if u != g.owner && u.AccessLevel() < AccessElevated {
		return g.actionError(OpStartGame, ErrPolicyDenied, MsgStartGameErrorNotOwner)
	}
	if g.status != GameWaiting {
		return g.actionError(OpStartGame, ErrStateViolation, MsgStartGameErrorAlreadyStarted)
	}

	players := g.playersLocked()
	if len(players) < g.flags.MinPlayersToStart {
		return g.actionError(OpStartGame, ErrStateViolation, MsgStartGameErrorNotEnoughPlayers, g.flags.MinPlayersToStart)
	}
	if g.owner != nil {
		ct := g.owner.ConnectionType()
		for _, p := range players {
			if p.ConnectionType() != ct {
				return g.actionError(OpStartGame, ErrPolicyDenied, MsgStartGameErrorConnectionMismatch, p.Name(), ct)
			}
		}
	}

	g.recomputeDelayLocked()
	g.sendLocked(players, GameStartingEvent{Game: g})
	g.log.Info("game starting", "requester", u.String())
	return nil
}

// addData queues one frame for the slot and relays every tick for which all
// participating players have supplied input.
func (g *Game) addData(u *User, slot int, frame []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	fail := func(key string) *GameDataError {
		return newGameDataError(g.lang.String(key), frame, u.ConnectionType().ByteValue(), slot, len(g.slots))
	}

	if g.status != GamePlaying {
		return fail(MsgGameDataErrorNotPlaying)
	}
	q := g.queueLocked(slot, u)
	if q == nil {
		return fail(MsgGameDataErrorBadSlot)
	}
	if !q.synced || q.dropped {
		return fail(MsgGameDataErrorNotSynced)
	}
	if q.desynched {
		return fail(MsgGameDataErrorDesynch)
	}

	if len(frame) == 0 || len(frame)%g.actionsPerMessage != 0 || (g.frameSize != 0 && len(frame) != g.frameSize) {
		q.desynched = true
		msg := g.lang.String(MsgDesynchDetected, u.Name(), slot)
		g.sendLocked(g.playersLocked(), PlayerDesynchEvent{Game: g, User: u, Message: msg})
		g.log.Warn("player desynched", "user", u.String(), "slot", slot, "size", len(frame), "expected", g.frameSize)
		err := fail(MsgGameDataErrorDesynch)
		g.flushLocked()
		return err
	}
	if len(q.pending) >= g.flags.GameBufferSize {
		return fail(MsgGameDataErrorOverflow)
	}

	now := g.clock.Now()
	g.frameSize = len(frame)
	q.pending = append(q.pending, bytes.Clone(frame))
	q.lastData = now
	q.timeoutNumber = 0

	g.flushLocked()
	g.checkTimeoutsLocked(now)
	return nil
}

// flushLocked relays merged frames for as long as every participating slot
// has one pending.
func (g *Game) flushLocked() {
	for {
		active := g.activeLocked()
		if len(active) == 0 || g.frameSize == 0 {
			return
		}
		for _, q := range g.slots {
			if q.participating() && len(q.pending) == 0 {
				return
			}
		}
		g.sendLocked(active, GameDataEvent{Game: g, Data: g.mergeLocked()})
	}
}

// mergeLocked pops one frame from every participating slot and interleaves
// them per action. Holes and idle slots are zero-filled.
func (g *Game) mergeLocked() []byte {
	slots := len(g.slots)
	bytesPerAction := g.frameSize / g.actionsPerMessage
	merged := make([]byte, slots*g.frameSize)

	for p, q := range g.slots {
		if !q.participating() {
			continue
		}
		frame := q.pending[0]
		q.pending = q.pending[1:]
		for a := 0; a < g.actionsPerMessage; a++ {
			dst := (a*slots + p) * bytesPerAction
			copy(merged[dst:dst+bytesPerAction], frame[a*bytesPerAction:(a+1)*bytesPerAction])
		}
	}
	return merged
}

// checkTimeouts raises a GameTimeoutEvent for each player the game has been
// waiting on for another multiple of the game timeout.
func (g *Game) checkTimeouts() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == GamePlaying {
		g.checkTimeoutsLocked(g.clock.Now())
	}
}

func (g *Game) checkTimeoutsLocked(now time.Time) {
	if g.flags.GameTimeout <= 0 {
		return
	}

	waiting := false
	for _, q := range g.slots {
		if q.participating() && len(q.pending) > 0 {
			waiting = true
			break
		}
	}
	if !waiting {
		return
	}

	active := g.activeLocked()
	for _, q := range g.slots {
		if !q.participating() || len(q.pending) > 0 {
			continue
		}
		n := int(now.Sub(q.lastData) / g.flags.GameTimeout)
		if n <= q.timeoutNumber {
			continue
		}
		q.timeoutNumber = n
		g.log.Debug("waiting on player", "user", q.user.String(), "timeout", n)
		g.sendLocked(active, GameTimeoutEvent{Game: g, User: q.user, TimeoutNumber: n})
	}
}

func (g *Game) droppedPacket(u *User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, q := range g.slots {
		if q != nil && q.user == u {
			q.droppedPackets++
			return
		}
	}
}

// chat delivers message to every player not ignoring the sender.
func (g *Game) chat(u *User, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	players := g.playersLocked()
	found := false
	for _, p := range players {
		if p == u {
			found = true
			break
		}
	}
	if !found {
		return g.actionError(OpGameChat, ErrStateViolation, MsgGameChatErrorNotInGame)
	}

	for _, p := range players {
		if p.IsIgnoring(u) {
			continue
		}
		p.QueueEvent(GameChatEvent{Game: g, User: u, Message: message})
	}
	return nil
}

// Announce sends a server notice to target, or to every player when target
// is nil.
func (g *Game) Announce(message string, target *User) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ev := GameInfoEvent{Game: g, Message: message, Target: target}
	if target != nil {
		target.QueueEvent(ev)
		return
	}
	g.sendLocked(g.playersLocked(), ev)
}

func (g *Game) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = GameEnded
}
