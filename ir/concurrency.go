package ir

var (
	_ Instruction = (*FiberNew)(nil)
	_ Instruction = (*FiberResume)(nil)
	_ Instruction = (*FiberYield)(nil)
	_ Instruction = (*FiberAlive)(nil)
	_ Instruction = (*FiberCurrent)(nil)
	_ Instruction = (*ThreadNew)(nil)
	_ Instruction = (*ThreadJoin)(nil)
	_ Instruction = (*ThreadValue)(nil)
	_ Instruction = (*ThreadAlive)(nil)
	_ Instruction = (*ThreadCurrent)(nil)
	_ Instruction = (*MutexNew)(nil)
	_ Instruction = (*MutexLock)(nil)
	_ Instruction = (*MutexUnlock)(nil)
	_ Instruction = (*MutexTryLock)(nil)
	_ Instruction = (*MutexLocked)(nil)
	_ Instruction = (*MutexSynchronize)(nil)
	_ Instruction = (*QueueNew)(nil)
	_ Instruction = (*QueuePush)(nil)
	_ Instruction = (*QueuePop)(nil)
	_ Instruction = (*QueueClose)(nil)
	_ Instruction = (*QueueSize)(nil)
	_ Instruction = (*QueueEmpty)(nil)
	_ Instruction = (*QueueMax)(nil)
	_ Instruction = (*CondVarNew)(nil)
	_ Instruction = (*CondVarWait)(nil)
	_ Instruction = (*CondVarSignal)(nil)
	_ Instruction = (*CondVarBroadcast)(nil)
	_ Instruction = (*RactorNew)(nil)
	_ Instruction = (*RactorSend)(nil)
	_ Instruction = (*RactorReceive)(nil)
	_ Instruction = (*RactorJoin)(nil)
	_ Instruction = (*RactorValue)(nil)
	_ Instruction = (*RactorClose)(nil)
	_ Instruction = (*RactorCurrent)(nil)
	_ Instruction = (*RactorMain)(nil)
	_ Instruction = (*RactorSelect)(nil)
	_ Instruction = (*RactorLocalGet)(nil)
	_ Instruction = (*RactorLocalSet)(nil)
	_ Instruction = (*RactorMakeShareable)(nil)
	_ Instruction = (*RactorShareable)(nil)
	_ Instruction = (*RactorGetName)(nil)
	_ Instruction = (*RactorMonitor)(nil)
	_ Instruction = (*RactorUnmonitor)(nil)
	_ Instruction = (*PortNew)(nil)
	_ Instruction = (*PortSend)(nil)
	_ Instruction = (*PortReceive)(nil)
	_ Instruction = (*PortClose)(nil)
	_ Instruction = (*PortClosed)(nil)
)

// Concurrency primitives are lowered to these instructions instead of dynamic calls.
// Body operands are closures made by MakeClosure. Optional operands (timeouts,
// names, non_block flags) are nil when the source leaves them out.

// Fiber
type (
	FiberNew struct {
		Base
		Body Value
	}
	FiberResume struct {
		Base
		Fiber Value
		Args  []Value
	}
	// FiberYield suspends the current fiber, handing Args to whoever resumed it
	FiberYield struct {
		Base
		Args []Value
	}
	FiberAlive struct {
		Base
		Fiber Value
	}
	FiberCurrent struct {
		Base
	}
)

// Thread
type (
	ThreadNew struct {
		Base
		Body Value
		Args []Value
	}
	ThreadJoin struct {
		Base
		Thread  Value
		Timeout Value
	}
	ThreadValue struct {
		Base
		Thread Value
	}
	ThreadAlive struct {
		Base
		Thread Value
	}
	ThreadCurrent struct {
		Base
	}
)

// Mutex
type (
	MutexNew struct {
		Base
	}
	MutexLock struct {
		Base
		Mutex Value
	}
	MutexUnlock struct {
		Base
		Mutex Value
	}
	MutexTryLock struct {
		Base
		Mutex Value
	}
	MutexLocked struct {
		Base
		Mutex Value
	}
	// MutexSynchronize runs Body with Mutex held and releases it on any exit
	MutexSynchronize struct {
		Base
		Mutex Value
		Body  Value
	}
)

// Queue and SizedQueue
type (
	// QueueNew makes a SizedQueue when Max is set
	QueueNew struct {
		Base
		Max Value
	}
	QueuePush struct {
		Base
		Queue, Value Value
	}
	QueuePop struct {
		Base
		Queue    Value
		NonBlock Value
	}
	QueueClose struct {
		Base
		Queue Value
	}
	QueueSize struct {
		Base
		Queue Value
	}
	QueueEmpty struct {
		Base
		Queue Value
	}
	QueueMax struct {
		Base
		Queue Value
	}
)

// ConditionVariable
type (
	CondVarNew struct {
		Base
	}
	CondVarWait struct {
		Base
		CondVar, Mutex Value
		Timeout        Value
	}
	CondVarSignal struct {
		Base
		CondVar Value
	}
	CondVarBroadcast struct {
		Base
		CondVar Value
	}
)

// Ractor
type (
	RactorNew struct {
		Base
		Body       Value
		Args       []Value
		RactorName Value
	}
	RactorSend struct {
		Base
		Ractor, Message Value
		Move            bool
	}
	// RactorReceive takes the next message from the current ractor's default port
	RactorReceive struct {
		Base
	}
	RactorJoin struct {
		Base
		Ractor Value
	}
	RactorValue struct {
		Base
		Ractor Value
	}
	RactorClose struct {
		Base
		Ractor Value
	}
	RactorCurrent struct {
		Base
	}
	RactorMain struct {
		Base
	}
	// RactorSelect waits on several ractors or ports and yields [source, value]
	RactorSelect struct {
		Base
		Sources []Value
	}
	RactorLocalGet struct {
		Base
		Key Value
	}
	RactorLocalSet struct {
		Base
		Key, Value Value
	}
	RactorMakeShareable struct {
		Base
		Value Value
	}
	RactorShareable struct {
		Base
		Value Value
	}
	// RactorGetName yields nil for a ractor started without a name
	RactorGetName struct {
		Base
		Ractor Value
	}
	// RactorMonitor has Port sent a message when Ractor terminates
	RactorMonitor struct {
		Base
		Ractor, Port Value
	}
	RactorUnmonitor struct {
		Base
		Ractor, Port Value
	}
)

// Ractor::Port
type (
	PortNew struct {
		Base
	}
	PortSend struct {
		Base
		Port, Message Value
	}
	PortReceive struct {
		Base
		Port Value
	}
	PortClose struct {
		Base
		Port Value
	}
	PortClosed struct {
		Base
		Port Value
	}
)

func (*FiberNew) Opcode() string            { return "fiber.new" }
func (*FiberResume) Opcode() string         { return "fiber.resume" }
func (*FiberYield) Opcode() string          { return "fiber.yield" }
func (*FiberAlive) Opcode() string          { return "fiber.alive" }
func (*FiberCurrent) Opcode() string        { return "fiber.current" }
func (*ThreadNew) Opcode() string           { return "thread.new" }
func (*ThreadJoin) Opcode() string          { return "thread.join" }
func (*ThreadValue) Opcode() string         { return "thread.value" }
func (*ThreadAlive) Opcode() string         { return "thread.alive" }
func (*ThreadCurrent) Opcode() string       { return "thread.current" }
func (*MutexNew) Opcode() string            { return "mutex.new" }
func (*MutexLock) Opcode() string           { return "mutex.lock" }
func (*MutexUnlock) Opcode() string         { return "mutex.unlock" }
func (*MutexTryLock) Opcode() string        { return "mutex.try_lock" }
func (*MutexLocked) Opcode() string         { return "mutex.locked" }
func (*MutexSynchronize) Opcode() string    { return "mutex.synchronize" }
func (*QueueNew) Opcode() string            { return "queue.new" }
func (*QueuePush) Opcode() string           { return "queue.push" }
func (*QueuePop) Opcode() string            { return "queue.pop" }
func (*QueueClose) Opcode() string          { return "queue.close" }
func (*QueueSize) Opcode() string           { return "queue.size" }
func (*QueueEmpty) Opcode() string          { return "queue.empty" }
func (*QueueMax) Opcode() string            { return "queue.max" }
func (*CondVarNew) Opcode() string          { return "condvar.new" }
func (*CondVarWait) Opcode() string         { return "condvar.wait" }
func (*CondVarSignal) Opcode() string       { return "condvar.signal" }
func (*CondVarBroadcast) Opcode() string    { return "condvar.broadcast" }
func (*RactorNew) Opcode() string           { return "ractor.new" }
func (*RactorSend) Opcode() string          { return "ractor.send" }
func (*RactorReceive) Opcode() string       { return "ractor.receive" }
func (*RactorJoin) Opcode() string          { return "ractor.join" }
func (*RactorValue) Opcode() string         { return "ractor.value" }
func (*RactorClose) Opcode() string         { return "ractor.close" }
func (*RactorCurrent) Opcode() string       { return "ractor.current" }
func (*RactorMain) Opcode() string          { return "ractor.main" }
func (*RactorSelect) Opcode() string        { return "ractor.select" }
func (*RactorLocalGet) Opcode() string      { return "ractor.local_get" }
func (*RactorLocalSet) Opcode() string      { return "ractor.local_set" }
func (*RactorMakeShareable) Opcode() string { return "ractor.make_shareable" }
func (*RactorShareable) Opcode() string     { return "ractor.shareable" }
func (*RactorGetName) Opcode() string       { return "ractor.name" }
func (*RactorMonitor) Opcode() string       { return "ractor.monitor" }
func (*RactorUnmonitor) Opcode() string     { return "ractor.unmonitor" }
func (*PortNew) Opcode() string             { return "port.new" }
func (*PortSend) Opcode() string            { return "port.send" }
func (*PortReceive) Opcode() string         { return "port.receive" }
func (*PortClose) Opcode() string           { return "port.close" }
func (*PortClosed) Opcode() string          { return "port.closed" }

func (i *FiberNew) Operands() []Value            { return values(i.Body) }
func (i *FiberResume) Operands() []Value         { return withArgs(values(i.Fiber), i.Args) }
func (i *FiberYield) Operands() []Value          { return i.Args }
func (i *FiberAlive) Operands() []Value          { return values(i.Fiber) }
func (i *ThreadNew) Operands() []Value           { return withArgs(values(i.Body), i.Args) }
func (i *ThreadJoin) Operands() []Value          { return values(i.Thread, i.Timeout) }
func (i *ThreadValue) Operands() []Value         { return values(i.Thread) }
func (i *ThreadAlive) Operands() []Value         { return values(i.Thread) }
func (i *MutexLock) Operands() []Value           { return values(i.Mutex) }
func (i *MutexUnlock) Operands() []Value         { return values(i.Mutex) }
func (i *MutexTryLock) Operands() []Value        { return values(i.Mutex) }
func (i *MutexLocked) Operands() []Value         { return values(i.Mutex) }
func (i *MutexSynchronize) Operands() []Value    { return values(i.Mutex, i.Body) }
func (i *QueueNew) Operands() []Value            { return values(i.Max) }
func (i *QueuePush) Operands() []Value           { return values(i.Queue, i.Value) }
func (i *QueuePop) Operands() []Value            { return values(i.Queue, i.NonBlock) }
func (i *QueueClose) Operands() []Value          { return values(i.Queue) }
func (i *QueueSize) Operands() []Value           { return values(i.Queue) }
func (i *QueueEmpty) Operands() []Value          { return values(i.Queue) }
func (i *QueueMax) Operands() []Value            { return values(i.Queue) }
func (i *CondVarWait) Operands() []Value         { return values(i.CondVar, i.Mutex, i.Timeout) }
func (i *CondVarSignal) Operands() []Value       { return values(i.CondVar) }
func (i *CondVarBroadcast) Operands() []Value    { return values(i.CondVar) }
func (i *RactorNew) Operands() []Value           { return append(withArgs(values(i.Body), i.Args), i.RactorName) }
func (i *RactorSend) Operands() []Value          { return values(i.Ractor, i.Message) }
func (i *RactorJoin) Operands() []Value          { return values(i.Ractor) }
func (i *RactorValue) Operands() []Value         { return values(i.Ractor) }
func (i *RactorClose) Operands() []Value         { return values(i.Ractor) }
func (i *RactorSelect) Operands() []Value        { return i.Sources }
func (i *RactorLocalGet) Operands() []Value      { return values(i.Key) }
func (i *RactorLocalSet) Operands() []Value      { return values(i.Key, i.Value) }
func (i *RactorMakeShareable) Operands() []Value { return values(i.Value) }
func (i *RactorShareable) Operands() []Value     { return values(i.Value) }
func (i *RactorGetName) Operands() []Value       { return values(i.Ractor) }
func (i *RactorMonitor) Operands() []Value       { return values(i.Ractor, i.Port) }
func (i *RactorUnmonitor) Operands() []Value     { return values(i.Ractor, i.Port) }
func (i *PortSend) Operands() []Value            { return values(i.Port, i.Message) }
func (i *PortReceive) Operands() []Value         { return values(i.Port) }
func (i *PortClose) Operands() []Value           { return values(i.Port) }
func (i *PortClosed) Operands() []Value          { return values(i.Port) }

func (i *RactorSend) details() string {
	if i.Move {
		return "move"
	}
	return ""
}
