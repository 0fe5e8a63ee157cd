package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ergochat/readline"

	"github.com/driftsync/driftsync"
	"github.com/driftsync/driftsync/store"
	"github.com/driftsync/driftsync/utils"
)

// REPL drives an in-process authority/observer pair so the wire format
// and the snapshot store can be poked at interactively.
type REPL struct {
	cfg     *Config
	log     utils.Logger
	rl      *readline.Instance
	reg     *driftsync.Registry
	server  *driftsync.Batcher
	client  *driftsync.Batcher
	metrics *driftsync.Metrics
	names   map[string]int32
	db      *store.Store
}

var ErrBadCommand = errors.New("bad command")

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("new"),
	readline.PcItem("set"),
	readline.PcItem("cset"),
	readline.PcItem("sync"),
	readline.PcItem("show"),
	readline.PcItem("stats"),

	readline.PcItem("save"),
	readline.PcItem("load"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func NewREPL(cfg *Config, log utils.Logger) *REPL {
	reg := driftsync.NewRegistry()
	metrics := driftsync.NewMetrics()
	return &REPL{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		server:  driftsync.NewBatcher(true, reg, &driftsync.BatcherOptions{Logger: log, Metrics: metrics}),
		client:  driftsync.NewBatcher(false, reg, &driftsync.BatcherOptions{Logger: log, Metrics: metrics}),
		metrics: metrics,
		names:   make(map[string]int32),
	}
}

func (repl *REPL) open() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     ".driftsync_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	repl.db, err = store.Open(repl.cfg.Dir, repl.log)
	return
}

func (repl *REPL) close() {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	if repl.db != nil {
		_ = repl.db.Close()
		repl.db = nil
	}
}

func (repl *REPL) Run() error {
	if err := repl.open(); err != nil {
		return err
	}
	defer repl.close()
	for {
		err := repl.step()
		if err == io.EOF {
			return nil
		}
		if err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			fmt.Println("error:", err.Error())
		}
	}
}

func (repl *REPL) step() error {
	line, err := repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd := args[0]
	args = args[1:]
	switch cmd {
	case "help":
		repl.commandHelp()
		return nil
	case "new":
		return repl.commandNew(args)
	case "set":
		return repl.commandSet(args)
	case "cset":
		return repl.commandClassSet(args)
	case "sync":
		return repl.commandSync(args)
	case "show":
		repl.commandShow()
		return nil
	case "stats":
		fmt.Printf("avg batch %.1f bytes\n", repl.metrics.AvgBatchBytes())
		return nil
	case "save":
		return repl.commandSave()
	case "load":
		return repl.commandLoad()
	case "exit", "quit":
		return io.EOF
	default:
		return fmt.Errorf("%w: %s (try help)", ErrBadCommand, cmd)
	}
}

func (repl *REPL) commandHelp() {
	fmt.Print(`new <TypeName>                      create an instance of the named type
set <fid> <kind> <value>            create/update a top level field
cset <TypeName> <id> <fid> <kind> <value>
                                    create/update a field on an instance
sync [full]                         serialize on the authority, apply on the observer
show                                dump both sides
stats                               print sync telemetry
save                                snapshot the authority into the store
load                                restore the authority from the store
exit                                leave

kinds: B bool, U byte, I int32, L int64, F float32, D float64,
       S string, V vec2 (x,y), W vec3 (x,y,z), Q quat (x,y,z,w)
`)
}

func (repl *REPL) typeOf(name string) int32 {
	typeID, ok := repl.names[name]
	if ok {
		return typeID
	}
	typeID = driftsync.TypeHash(name)
	repl.names[name] = typeID
	repl.registerType(typeID)
	return typeID
}

func (repl *REPL) registerType(typeID int32) {
	repl.reg.RegisterServer(typeID, func(id int32) *driftsync.Class {
		return driftsync.NewClass(driftsync.Key{Type: typeID, ID: id}, true)
	})
	repl.reg.RegisterClient(typeID, func(id int32) *driftsync.Class {
		return driftsync.NewClass(driftsync.Key{Type: typeID, ID: id}, false)
	})
}

func (repl *REPL) commandNew(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: new <TypeName>", ErrBadCommand)
	}
	c, err := repl.server.NewClassOf(repl.typeOf(args[0]))
	if err != nil {
		return err
	}
	fmt.Println(c.Key().String())
	return nil
}

func (repl *REPL) commandSet(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: set <fid> <kind> <value>", ErrBadCommand)
	}
	fid, kind, err := parseFieldArgs(args[0], args[1])
	if err != nil {
		return err
	}
	f, ok := repl.server.Field(fid)
	if !ok {
		f, err = makeField(fid, kind, true)
		if err != nil {
			return err
		}
		repl.server.AddField(f)
	} else if f.Kind() != kind {
		return fmt.Errorf("%w: field %d is %c", ErrBadCommand, fid, f.Kind())
	}
	return setField(f, args[2])
}

func (repl *REPL) commandClassSet(args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("%w: cset <TypeName> <id> <fid> <kind> <value>", ErrBadCommand)
	}
	id, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return err
	}
	key := driftsync.Key{Type: repl.typeOf(args[0]), ID: int32(id)}
	c, ok := repl.server.Class(key)
	if !ok {
		c = driftsync.NewClass(key, true)
		repl.server.AddClass(c)
	}
	fid, kind, err := parseFieldArgs(args[2], args[3])
	if err != nil {
		return err
	}
	f, ok := c.Field(fid)
	if !ok {
		f, err = makeField(fid, kind, true)
		if err != nil {
			return err
		}
		c.AddField(f)
	} else if f.Kind() != kind {
		return fmt.Errorf("%w: field %d is %c", ErrBadCommand, fid, f.Kind())
	}
	return setField(f, args[4])
}

func (repl *REPL) commandSync(args []string) error {
	full := len(args) == 1 && args[0] == "full"
	msg := repl.server.Batch(full)
	if err := repl.client.Unbatch(msg); err != nil {
		return err
	}
	fmt.Printf("%d bytes\n", len(msg))
	return nil
}

func (repl *REPL) commandShow() {
	fmt.Println("authority:")
	showBatcher(repl.server)
	fmt.Println("observer:")
	showBatcher(repl.client)
}

func showBatcher(b *driftsync.Batcher) {
	for _, f := range b.Fields() {
		fmt.Printf("  .%d %c %s\n", f.ID(), f.Kind(), f.String())
	}
	for _, c := range b.Classes() {
		showClass(c, "  ")
	}
}

func showClass(c *driftsync.Class, indent string) {
	fmt.Printf("%s%s\n", indent, c.Key().String())
	for _, f := range c.Fields() {
		fmt.Printf("%s  .%d %c %s\n", indent, f.ID(), f.Kind(), f.String())
	}
	for _, ch := range c.Children() {
		showClass(ch, indent+"  ")
	}
}

func (repl *REPL) commandSave() error {
	return repl.db.PutBatch(repl.server.Save())
}

func (repl *REPL) commandLoad() error {
	saved, err := repl.db.GetBatch()
	if err != nil {
		return err
	}
	// snapshots may mention types no command has named yet
	for _, sc := range saved.Classes {
		repl.registerSaved(sc)
	}
	repl.server.Reload(saved)
	return nil
}

func (repl *REPL) registerSaved(sc *driftsync.SavedClass) {
	repl.registerType(sc.Type)
	for _, ch := range sc.Classes {
		repl.registerSaved(ch)
	}
}

func parseFieldArgs(fidArg, kindArg string) (driftsync.FieldID, byte, error) {
	fid, err := strconv.ParseUint(fidArg, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	if len(kindArg) != 1 || !driftsync.KindValid(kindArg[0]) {
		return 0, 0, fmt.Errorf("%w: unknown kind %q", ErrBadCommand, kindArg)
	}
	return driftsync.FieldID(fid), kindArg[0], nil
}

func makeField(id driftsync.FieldID, kind byte, server bool) (driftsync.Field, error) {
	switch kind {
	case driftsync.KindBool:
		return driftsync.NewBoolField(id, server, false), nil
	case driftsync.KindByte:
		return driftsync.NewByteField(id, server, 0), nil
	case driftsync.KindInt:
		return driftsync.NewIntField(id, server, 0), nil
	case driftsync.KindLong:
		return driftsync.NewLongField(id, server, 0), nil
	case driftsync.KindFloat:
		return driftsync.NewFloatField(id, server, 0), nil
	case driftsync.KindDouble:
		return driftsync.NewDoubleField(id, server, 0), nil
	case driftsync.KindString:
		return driftsync.NewStringField(id, server, ""), nil
	case driftsync.KindVector2:
		return driftsync.NewVector2Field(id, server, driftsync.Vector2{}), nil
	case driftsync.KindVector3:
		return driftsync.NewVector3Field(id, server, driftsync.Vector3{}), nil
	case driftsync.KindQuaternion:
		return driftsync.NewQuaternionField(id, server, driftsync.Quaternion{W: 1}), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %c", ErrBadCommand, kind)
	}
}

func setField(f driftsync.Field, val string) error {
	switch x := f.(type) {
	case *driftsync.BoolField:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		x.Set(b)
	case *driftsync.ByteField:
		n, err := strconv.ParseUint(val, 10, 8)
		if err != nil {
			return err
		}
		x.Set(uint8(n))
	case *driftsync.IntField:
		n, err := strconv.ParseInt(val, 10, 32)
		if err != nil {
			return err
		}
		x.Set(int32(n))
	case *driftsync.LongField:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return err
		}
		x.Set(n)
	case *driftsync.FloatField:
		n, err := strconv.ParseFloat(val, 32)
		if err != nil {
			return err
		}
		x.Set(float32(n))
	case *driftsync.DoubleField:
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		x.Set(n)
	case *driftsync.StringField:
		x.Set(val)
	case *driftsync.Vector2Field:
		c, err := parseFloats(val, 2)
		if err != nil {
			return err
		}
		x.Set(driftsync.Vector2{X: c[0], Y: c[1]})
	case *driftsync.Vector3Field:
		c, err := parseFloats(val, 3)
		if err != nil {
			return err
		}
		x.Set(driftsync.Vector3{X: c[0], Y: c[1], Z: c[2]})
	case *driftsync.QuaternionField:
		c, err := parseFloats(val, 4)
		if err != nil {
			return err
		}
		x.Set(driftsync.Quaternion{X: c[0], Y: c[1], Z: c[2], W: c[3]})
	default:
		return fmt.Errorf("%w: cannot set %T", ErrBadCommand, f)
	}
	return nil
}

func parseFloats(val string, n int) ([]float32, error) {
	parts := strings.Split(val, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%w: want %d comma separated components", ErrBadCommand, n)
	}
	out := make([]float32, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
