package protocol

// JoinRoomError is the user-visible taxonomy of join failures. It implements
// error so room-manager call sites can return it directly; the string value
// is the wire tag embedded in a Result frame.
type JoinRoomError string

const (
	ErrRoomFull            JoinRoomError = "RoomFull"
	ErrGameInProgress      JoinRoomError = "GameInProgress"
	ErrAlreadyInRoom       JoinRoomError = "AlreadyInRoom"
	ErrRoomNotFound        JoinRoomError = "RoomNotFound"
	ErrNotSignedIn         JoinRoomError = "NotSignedIn"
	ErrInvalidCode         JoinRoomError = "InvalidCode"
	ErrInternalServerError JoinRoomError = "InternalServerError"
)

func (e JoinRoomError) Error() string { return string(e) }

// StartGameError covers rejected start requests.
type StartGameError string

const (
	ErrGameAlreadyRunning StartGameError = "GameAlreadyRunning"
	ErrNotLeader          StartGameError = "NotLeader"
)

func (e StartGameError) Error() string { return string(e) }
