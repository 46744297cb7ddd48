package sim

// Drive is the forward/reverse intent
type Drive uint8

const (
	DriveNone Drive = iota
	DriveForward
	DriveReverse
)

// Turn is a rotation intent for the hull or the turret
type Turn uint8

const (
	TurnNone Turn = iota
	TurnLeft
	TurnRight
)

// Input is what a player wants their tank to do this tick. Seq increases
// with every input a client sends; the server echoes the last one it
// applied through the player's latched input.
type Input struct {
	Drive  Drive  `msgpack:"d"`
	Rotate Turn   `msgpack:"r"`
	Turret Turn   `msgpack:"tu"`
	Fire   bool   `msgpack:"f"`
	Seq    uint64 `msgpack:"s"`
}

// Player is a connected participant and the input latched for them
type Player struct {
	Name  string `msgpack:"n"`
	Input Input  `msgpack:"i"`
}
