package sys

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"
)

// --- Prefix Commands ---

// Embed is a minimal rich reply; the Discord adapter renders it.
type Embed struct {
	Title       string
	Description string
	Color       int
}

type Reply struct {
	Content string
	Embed   *Embed
}

type Replier interface {
	Reply(ctx context.Context, r Reply) error
}

// CommandEvent is one parsed prefix command invocation.
type CommandEvent struct {
	Ctx            context.Context
	GuildID        snowflake.ID
	GuildName      string
	ChannelID      snowflake.ID
	UserID         snowflake.ID
	UserName       string
	DisplayName    string
	Name           string
	Args           string
	CanManageGuild bool
	VoiceChannelID *snowflake.ID
	Prefix         string
	Replier        Replier
}

func (e *CommandEvent) Reply(format string, v ...any) {
	content := format
	if len(v) > 0 {
		content = fmt.Sprintf(format, v...)
	}
	e.send(Reply{Content: content})
}

func (e *CommandEvent) ReplyEmbed(title, description string, color int) {
	e.send(Reply{Embed: &Embed{Title: title, Description: description, Color: color}})
}

func (e *CommandEvent) send(r Reply) {
	if e.Replier == nil {
		return
	}
	if err := e.Replier.Reply(e.Ctx, r); err != nil {
		LogWarn(MsgDispatchReplyFail, e.ChannelID, err)
	}
}

type PrefixCommand struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
	Handler func(e *CommandEvent)
}

var (
	prefixCommands = map[string]*PrefixCommand{}
	prefixAliases  = map[string]string{}
)

func RegisterPrefixCommand(cmd PrefixCommand) {
	name := strings.ToLower(cmd.Name)
	if _, ok := prefixCommands[name]; ok {
		LogWarn(MsgLoaderDuplicateCommand, name)
	}
	c := cmd
	prefixCommands[name] = &c
	for _, a := range cmd.Aliases {
		prefixAliases[strings.ToLower(a)] = name
	}
}

func LookupPrefixCommand(name string) (*PrefixCommand, bool) {
	name = strings.ToLower(name)
	if target, ok := prefixAliases[name]; ok {
		name = target
	}
	cmd, ok := prefixCommands[name]
	return cmd, ok
}

// PrefixCommands returns all registered commands sorted by name.
func PrefixCommands() []*PrefixCommand {
	out := make([]*PrefixCommand, 0, len(prefixCommands))
	for _, c := range prefixCommands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ParseCommand splits "!name rest of line" into name and the trimmed rest.
func ParseCommand(prefix, content string) (name, args string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	body := strings.TrimSpace(content[len(prefix):])
	if body == "" {
		return "", "", false
	}
	name = body
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		name, args = body[:i], body[i+1:]
	}
	return strings.ToLower(name), strings.TrimSpace(args), true
}

// --- Per-guild serial dispatch ---

const (
	guildQueueSize  = 32
	guildWorkerIdle = 2 * time.Minute
)

type guildWorker struct {
	jobs chan func()
}

// Dispatcher runs each guild's commands one at a time, in arrival order.
// Different guilds run concurrently.
type Dispatcher struct {
	mu       sync.Mutex
	workers  map[snowflake.ID]*guildWorker
	limiters map[snowflake.ID]*rate.Limiter
	limit    rate.Limit
	burst    int
	idle     time.Duration
	closed   bool
	wg       sync.WaitGroup
}

func NewDispatcher(limit rate.Limit, burst int) *Dispatcher {
	return &Dispatcher{
		workers:  make(map[snowflake.ID]*guildWorker),
		limiters: make(map[snowflake.ID]*rate.Limiter),
		limit:    limit,
		burst:    burst,
		idle:     guildWorkerIdle,
	}
}

// Allow consumes one token from the user's bucket.
func (d *Dispatcher) Allow(userID snowflake.ID) bool {
	d.mu.Lock()
	l, ok := d.limiters[userID]
	if !ok {
		l = rate.NewLimiter(d.limit, d.burst)
		d.limiters[userID] = l
	}
	d.mu.Unlock()
	return l.Allow()
}

// Submit queues job on the guild's worker. It returns false once the
// dispatcher is closed or the guild's queue is full.
func (d *Dispatcher) Submit(guildID snowflake.ID, job func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	w, ok := d.workers[guildID]
	if !ok {
		w = &guildWorker{jobs: make(chan func(), guildQueueSize)}
		d.workers[guildID] = w
		d.wg.Add(1)
		go d.run(guildID, w)
	}

	select {
	case w.jobs <- job:
		return true
	default:
		return false
	}
}

// Dispatch routes a parsed command to its handler through the guild worker.
func (d *Dispatcher) Dispatch(e *CommandEvent) bool {
	cmd, ok := LookupPrefixCommand(e.Name)
	if !ok {
		LogDebug(MsgLoaderUnknownPrefixCmd, e.Name, e.UserName)
		return false
	}
	if !d.Allow(e.UserID) {
		LogCommand(MsgDispatchRateLimited, e.UserName, e.GuildID)
		e.Reply(ErrSlowDown)
		return false
	}

	queued := d.Submit(e.GuildID, func() {
		defer func() {
			if r := recover(); r != nil {
				e.Reply(ErrSomethingWentWrong)
				panic(r)
			}
		}()
		start := time.Now()
		cmd.Handler(e)
		LogDebug(MsgDispatchHandled, e.UserName, cmd.Name, e.GuildID, time.Since(start).Round(time.Millisecond))
	})
	if !queued {
		LogWarn(MsgDispatchQueueFull, e.GuildID, cmd.Name)
	}
	return queued
}

func (d *Dispatcher) run(guildID snowflake.ID, w *guildWorker) {
	defer d.wg.Done()

	timer := time.NewTimer(d.idle)
	defer timer.Stop()

	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			runRecovered(job)
			timer.Reset(d.idle)
		case <-timer.C:
			d.mu.Lock()
			if len(w.jobs) == 0 && !d.closed {
				delete(d.workers, guildID)
				d.pruneLimitersLocked()
				d.mu.Unlock()
				LogDebug(MsgDispatchWorkerIdle, guildID)
				return
			}
			d.mu.Unlock()
			timer.Reset(d.idle)
		}
	}
}

// pruneLimitersLocked drops buckets that have refilled, since a fresh
// limiter behaves the same. Throttled users keep theirs.
func (d *Dispatcher) pruneLimitersLocked() {
	for id, l := range d.limiters {
		if d.limit == rate.Inf || l.Tokens() >= float64(d.burst) {
			delete(d.limiters, id)
		}
	}
}

// Close stops accepting commands and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, w := range d.workers {
		close(w.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func runRecovered(f func()) {
	defer func() {
		if r := recover(); r != nil {
			LogError(MsgLoaderPanicRecovered, r)
			LogDebug("%s", debug.Stack())
		}
	}()
	f()
}
