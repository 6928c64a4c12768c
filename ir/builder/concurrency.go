package builder

import (
	"github.com/cottand/hirc/frontend/tast"
	"github.com/cottand/hirc/frontend/types"
	"github.com/cottand/hirc/ir"
	"github.com/cottand/hirc/util"
)

type makeInstruction func(base ir.Base, recv ir.Value, args []ir.Value) ir.Instruction

// shaped lowers a call without a block taking between min and max arguments
// (max < 0 for any number). The receiver is only evaluated when it is not a constant.
func shaped(min, max int, fallback types.Type, mk makeInstruction) callLowering {
	return func(b *Builder, c *callSite) (ir.Value, bool, error) {
		if c.block != nil || len(c.args) < min || (max >= 0 && len(c.args) > max) {
			return nil, false, nil
		}
		var recv ir.Value
		if c.recv != nil && !c.static {
			var err error
			if recv, err = b.lowerValue(c.recv); err != nil {
				return nil, true, err
			}
		}
		args, err := b.lowerArgs(c.args)
		if err != nil {
			return nil, true, err
		}
		return emit(b, mk(typed(c.node, fallback), recv, args)), true, nil
	}
}

// withBody lowers a call taking a literal block, made into the closure the new
// task or critical section runs
func withBody(args bool, fallback types.Type, mk func(base ir.Base, recv, body ir.Value, args []ir.Value) ir.Instruction) callLowering {
	return func(b *Builder, c *callSite) (ir.Value, bool, error) {
		if !c.hasBlock() || (!args && len(c.args) > 0) {
			return nil, false, nil
		}
		var recv ir.Value
		if c.recv != nil && !c.static {
			var err error
			if recv, err = b.lowerValue(c.recv); err != nil {
				return nil, true, err
			}
		}
		values, err := b.lowerArgs(c.args)
		if err != nil {
			return nil, true, err
		}
		body, err := b.lowerClosure(c.block, false)
		if err != nil {
			return nil, true, err
		}
		return emit(b, mk(typed(c.node, fallback), recv, body, values)), true, nil
	}
}

// keywordArg splits a trailing `key: value` off an argument list
func keywordArg(args []tast.Node, key string) ([]tast.Node, tast.Node) {
	if len(args) == 0 {
		return args, nil
	}
	last := args[len(args)-1]
	if last.Kind() != tast.Hash || len(last.Children()) != 2 {
		return args, nil
	}
	k := tast.Child(last, 0)
	if k == nil || k.Kind() != tast.Sym || k.Syntax().Value != key {
		return args, nil
	}
	return args[:len(args)-1], tast.Child(last, 1)
}

func arg(args []ir.Value, i int) ir.Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func lowerRactorNew(b *Builder, c *callSite) (ir.Value, bool, error) {
	if !c.hasBlock() {
		return nil, false, nil
	}
	positional, nameNode := keywordArg(c.args, "name")
	args, err := b.lowerArgs(positional)
	if err != nil {
		return nil, true, err
	}
	var name ir.Value
	if nameNode != nil {
		if name, err = b.lowerValue(nameNode); err != nil {
			return nil, true, err
		}
	}
	body, err := b.lowerClosure(c.block, false)
	if err != nil {
		return nil, true, err
	}
	return emit(b, &ir.RactorNew{Base: typed(c.node, types.NewClass("Ractor")), Body: body, Args: args, RactorName: name}), true, nil
}

func lowerRactorSend(b *Builder, c *callSite) (ir.Value, bool, error) {
	message, move := keywordArg(c.args, "move")
	if c.block != nil || len(message) != 1 || (move != nil && move.Kind() != tast.True && move.Kind() != tast.False) {
		return nil, false, nil
	}
	ractor, err := b.lowerValue(c.recv)
	if err != nil {
		return nil, true, err
	}
	m, err := b.lowerValue(message[0])
	if err != nil {
		return nil, true, err
	}
	return emit(b, &ir.RactorSend{
		Base:    typed(c.node, types.NewClass("Ractor")),
		Ractor:  ractor,
		Message: m,
		Move:    move != nil && move.Kind() == tast.True,
	}), true, nil
}

// concurrencyCalls lowers the core Fiber, Thread, Mutex, Queue, ConditionVariable,
// Ractor and Ractor::Port APIs to their instructions
func concurrencyCalls() map[util.Pair[string, string]]callLowering {
	calls := make(map[util.Pair[string, string]]callLowering)
	static := func(classes []string, method string, l callLowering) {
		for _, class := range classes {
			calls[util.NewPair("class:"+class, method)] = l
		}
	}
	on := func(classes []string, methods []string, l callLowering) {
		for _, class := range classes {
			for _, method := range methods {
				calls[util.NewPair(class, method)] = l
			}
		}
	}
	var (
		fiber   = []string{"Fiber"}
		thread  = []string{"Thread"}
		mutex   = []string{"Mutex", "Thread::Mutex"}
		queue   = []string{"Queue", "Thread::Queue", "SizedQueue", "Thread::SizedQueue"}
		sized   = []string{"SizedQueue", "Thread::SizedQueue"}
		condvar = []string{"ConditionVariable", "Thread::ConditionVariable"}
		ractor  = []string{"Ractor"}
		port    = []string{"Ractor::Port"}

		fiberT  = types.NewClass("Fiber")
		threadT = types.NewClass("Thread")
		mutexT  = types.NewClass("Thread::Mutex")
		queueT  = types.NewClass("Thread::Queue")
		ractorT = types.NewClass("Ractor")
		portT   = types.NewClass("Ractor::Port")
	)

	static(fiber, "new", withBody(false, fiberT, func(base ir.Base, _, body ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.FiberNew{Base: base, Body: body}
	}))
	on(fiber, []string{"resume"}, shaped(0, -1, types.Untyped, func(base ir.Base, recv ir.Value, args []ir.Value) ir.Instruction {
		return &ir.FiberResume{Base: base, Fiber: recv, Args: args}
	}))
	static(fiber, "yield", shaped(0, -1, types.Untyped, func(base ir.Base, _ ir.Value, args []ir.Value) ir.Instruction {
		return &ir.FiberYield{Base: base, Args: args}
	}))
	on(fiber, []string{"alive?"}, shaped(0, 0, types.Bool, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.FiberAlive{Base: base, Fiber: recv}
	}))
	static(fiber, "current", shaped(0, 0, fiberT, func(base ir.Base, _ ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.FiberCurrent{Base: base}
	}))

	for _, method := range []string{"new", "start", "fork"} {
		static(thread, method, withBody(true, threadT, func(base ir.Base, _, body ir.Value, args []ir.Value) ir.Instruction {
			return &ir.ThreadNew{Base: base, Body: body, Args: args}
		}))
	}
	on(thread, []string{"join"}, shaped(0, 1, threadT, func(base ir.Base, recv ir.Value, args []ir.Value) ir.Instruction {
		return &ir.ThreadJoin{Base: base, Thread: recv, Timeout: arg(args, 0)}
	}))
	on(thread, []string{"value"}, shaped(0, 0, types.Untyped, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.ThreadValue{Base: base, Thread: recv}
	}))
	on(thread, []string{"alive?"}, shaped(0, 0, types.Bool, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.ThreadAlive{Base: base, Thread: recv}
	}))
	static(thread, "current", shaped(0, 0, threadT, func(base ir.Base, _ ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.ThreadCurrent{Base: base}
	}))

	static(mutex, "new", shaped(0, 0, mutexT, func(base ir.Base, _ ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.MutexNew{Base: base}
	}))
	on(mutex, []string{"lock"}, shaped(0, 0, mutexT, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.MutexLock{Base: base, Mutex: recv}
	}))
	on(mutex, []string{"unlock"}, shaped(0, 0, mutexT, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.MutexUnlock{Base: base, Mutex: recv}
	}))
	on(mutex, []string{"try_lock"}, shaped(0, 0, types.Bool, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.MutexTryLock{Base: base, Mutex: recv}
	}))
	on(mutex, []string{"locked?"}, shaped(0, 0, types.Bool, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.MutexLocked{Base: base, Mutex: recv}
	}))
	on(mutex, []string{"synchronize"}, withBody(false, types.Untyped, func(base ir.Base, recv, body ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.MutexSynchronize{Base: base, Mutex: recv, Body: body}
	}))

	static(queue[:2], "new", shaped(0, 0, queueT, func(base ir.Base, _ ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.QueueNew{Base: base}
	}))
	static(sized, "new", shaped(1, 1, types.NewClass("Thread::SizedQueue"), func(base ir.Base, _ ir.Value, args []ir.Value) ir.Instruction {
		return &ir.QueueNew{Base: base, Max: args[0]}
	}))
	on(queue, []string{"push", "<<", "enq"}, shaped(1, 1, queueT, func(base ir.Base, recv ir.Value, args []ir.Value) ir.Instruction {
		return &ir.QueuePush{Base: base, Queue: recv, Value: args[0]}
	}))
	on(queue, []string{"pop", "shift", "deq"}, shaped(0, 1, types.Untyped, func(base ir.Base, recv ir.Value, args []ir.Value) ir.Instruction {
		return &ir.QueuePop{Base: base, Queue: recv, NonBlock: arg(args, 0)}
	}))
	on(queue, []string{"close"}, shaped(0, 0, queueT, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.QueueClose{Base: base, Queue: recv}
	}))
	on(queue, []string{"size", "length"}, shaped(0, 0, types.Integer, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.QueueSize{Base: base, Queue: recv}
	}))
	on(queue, []string{"empty?"}, shaped(0, 0, types.Bool, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.QueueEmpty{Base: base, Queue: recv}
	}))
	on(sized, []string{"max"}, shaped(0, 0, types.Integer, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.QueueMax{Base: base, Queue: recv}
	}))

	static(condvar, "new", shaped(0, 0, types.NewClass("Thread::ConditionVariable"), func(base ir.Base, _ ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.CondVarNew{Base: base}
	}))
	on(condvar, []string{"wait"}, shaped(1, 2, types.Untyped, func(base ir.Base, recv ir.Value, args []ir.Value) ir.Instruction {
		return &ir.CondVarWait{Base: base, CondVar: recv, Mutex: args[0], Timeout: arg(args, 1)}
	}))
	on(condvar, []string{"signal"}, shaped(0, 0, types.Untyped, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.CondVarSignal{Base: base, CondVar: recv}
	}))
	on(condvar, []string{"broadcast"}, shaped(0, 0, types.Untyped, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.CondVarBroadcast{Base: base, CondVar: recv}
	}))

	static(ractor, "new", lowerRactorNew)
	on(ractor, []string{"send", "<<"}, lowerRactorSend)
	for _, method := range []string{"receive", "recv"} {
		static(ractor, method, shaped(0, 0, types.Untyped, func(base ir.Base, _ ir.Value, _ []ir.Value) ir.Instruction {
			return &ir.RactorReceive{Base: base}
		}))
	}
	on(ractor, []string{"join"}, shaped(0, 0, ractorT, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.RactorJoin{Base: base, Ractor: recv}
	}))
	on(ractor, []string{"value"}, shaped(0, 0, types.Untyped, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.RactorValue{Base: base, Ractor: recv}
	}))
	on(ractor, []string{"close"}, shaped(0, 0, types.Bool, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.RactorClose{Base: base, Ractor: recv}
	}))
	static(ractor, "current", shaped(0, 0, ractorT, func(base ir.Base, _ ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.RactorCurrent{Base: base}
	}))
	static(ractor, "main", shaped(0, 0, ractorT, func(base ir.Base, _ ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.RactorMain{Base: base}
	}))
	static(ractor, "select", shaped(1, -1, types.ArrayOf(types.Untyped), func(base ir.Base, _ ir.Value, args []ir.Value) ir.Instruction {
		return &ir.RactorSelect{Base: base, Sources: args}
	}))
	static(ractor, "[]", shaped(1, 1, types.Untyped, func(base ir.Base, _ ir.Value, args []ir.Value) ir.Instruction {
		return &ir.RactorLocalGet{Base: base, Key: args[0]}
	}))
	static(ractor, "[]=", shaped(2, 2, types.Untyped, func(base ir.Base, _ ir.Value, args []ir.Value) ir.Instruction {
		return &ir.RactorLocalSet{Base: base, Key: args[0], Value: args[1]}
	}))
	static(ractor, "make_shareable", shaped(1, 1, types.Untyped, func(base ir.Base, _ ir.Value, args []ir.Value) ir.Instruction {
		return &ir.RactorMakeShareable{Base: base, Value: args[0]}
	}))
	static(ractor, "shareable?", shaped(1, 1, types.Bool, func(base ir.Base, _ ir.Value, args []ir.Value) ir.Instruction {
		return &ir.RactorShareable{Base: base, Value: args[0]}
	}))
	on(ractor, []string{"name"}, shaped(0, 0, types.Optional(types.String), func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.RactorGetName{Base: base, Ractor: recv}
	}))
	on(ractor, []string{"monitor"}, shaped(1, 1, types.Untyped, func(base ir.Base, recv ir.Value, args []ir.Value) ir.Instruction {
		return &ir.RactorMonitor{Base: base, Ractor: recv, Port: args[0]}
	}))
	on(ractor, []string{"unmonitor"}, shaped(1, 1, types.Untyped, func(base ir.Base, recv ir.Value, args []ir.Value) ir.Instruction {
		return &ir.RactorUnmonitor{Base: base, Ractor: recv, Port: args[0]}
	}))

	static(port, "new", shaped(0, 0, portT, func(base ir.Base, _ ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.PortNew{Base: base}
	}))
	on(port, []string{"send", "<<"}, shaped(1, 1, portT, func(base ir.Base, recv ir.Value, args []ir.Value) ir.Instruction {
		return &ir.PortSend{Base: base, Port: recv, Message: args[0]}
	}))
	on(port, []string{"receive"}, shaped(0, 0, types.Untyped, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.PortReceive{Base: base, Port: recv}
	}))
	on(port, []string{"close"}, shaped(0, 0, portT, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.PortClose{Base: base, Port: recv}
	}))
	on(port, []string{"closed?"}, shaped(0, 0, types.Bool, func(base ir.Base, recv ir.Value, _ []ir.Value) ir.Instruction {
		return &ir.PortClosed{Base: base, Port: recv}
	}))
	return calls
}
