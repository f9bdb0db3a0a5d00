package xqdto

// CommandKind names a dispatcher command.
type CommandKind string

const (
	CommandCreate         CommandKind = "create"
	CommandJoin           CommandKind = "join"
	CommandMove           CommandKind = "move"
	CommandRegret         CommandKind = "regret"
	CommandRegretResponse CommandKind = "regret_response"
	CommandSurrender      CommandKind = "surrender"
	CommandState          CommandKind = "state"
	CommandLedger         CommandKind = "ledger"
	CommandRecord         CommandKind = "record"
	CommandHelp           CommandKind = "help"
)

type RequestMeta struct {
	Room     string
	Sender   string
	PlayerID string
}

// Request is a decoded command. From/To are used by move only, Accept by regret_response only.
type Request struct {
	Meta   RequestMeta
	Kind   CommandKind
	From   Square
	To     Square
	Accept bool
}

// Notice is a message owed to one player outside the normal reply.
type Notice struct {
	PlayerID string
	Key      string
}

// Response is the typed result of one command: either State (and Move) or ErrorKind is set.
type Response struct {
	Kind      CommandKind
	Success   bool
	State     *SessionState
	Move      *MoveView
	Undone    *MoveView
	Record    *PlayerRecord
	Finished  bool
	ErrorKind string
	Notice    *Notice
}
