package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// --- Globals & Styles ---

var (
	// Level colors
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)
	attrColor  = color.New(color.FgHiBlack)

	// Component colors
	databaseColor = color.New()
	libraryColor  = color.New(color.FgGreen)
	voiceColor    = color.New(color.FgMagenta)
	commandColor  = color.New(color.FgBlue)

	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	Logger            *slog.Logger

	logFile io.WriteCloser
	logMu   sync.Mutex
)

func init() {
	InitLogger(false, false, "")
}

// InitLogger installs the colored handler as the slog default. When path is
// set, records are also appended to a size-rotated file with colors removed.
func InitLogger(silent, debug bool, path string) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writer io.Writer = os.Stdout
	if path != "" {
		logFile = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}
		if silent {
			writer = NewStripANSIWriter(logFile)
		} else {
			writer = io.MultiWriter(os.Stdout, NewStripANSIWriter(logFile))
		}
	}

	color.NoColor = false

	handler := NewBotLogHandler(writer, &BotLogHandlerOptions{
		Silent: silent && path == "",
		Level:  level,
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// CloseLogger flushes and releases the rotating log file, if any.
func CloseLogger() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// --- Public Logging API ---

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

func LogFatal(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	slog.Log(context.Background(), slog.LevelError+4, msg)
	panic(msg)
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// Component Loggers

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogLibrary(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "library"))
}

func LogVoice(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "voice"))
}

func LogCommand(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "command"))
}

// VoiceLogger returns a component logger carrying extra attributes, used for
// per-session correlation ids.
func VoiceLogger(attrs ...any) *slog.Logger {
	return slog.Default().With(append([]any{slog.String("component", "voice")}, attrs...)...)
}

// --- Log Handler Implementation ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

type BotLogHandler struct {
	w     io.Writer
	opts  *BotLogHandlerOptions
	mu    *sync.Mutex
	attrs []slog.Attr
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &BotLogHandler{
		w:    w,
		opts: opts,
		mu:   &sync.Mutex{},
	}
}

func (h *BotLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Silent {
		return nil
	}

	timeStr := time.Now().Format(DefaultTimeFormat)
	levelStr := "DEBUG"
	levelColor := attrColor

	switch {
	case r.Level >= slog.LevelError+4:
		levelStr = "FATAL"
		levelColor = fatalColor
	case r.Level >= slog.LevelError:
		levelStr = "ERROR"
		levelColor = errorColor
	case r.Level >= slog.LevelWarn:
		levelStr = "WARN"
		levelColor = warnColor
	case r.Level >= slog.LevelInfo:
		levelStr = "INFO"
		levelColor = infoColor
	}

	component := ""
	var extra []string
	collect := func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return true
		}
		extra = append(extra, fmt.Sprintf("%s=%s", a.Key, a.Value.String()))
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	suffix := ""
	if len(extra) > 0 {
		suffix = " " + attrColor.Sprint(strings.Join(extra, " "))
	}

	fmt.Fprintf(h.w, "%s", timeStr)

	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		compColor := getComponentColor(component)
		fmt.Fprintf(h.w, " %s%s\n", colorizeWithResets(compColor, fmt.Sprintf("[%s] %s", component, r.Message)), suffix)
	} else {
		fmt.Fprintf(h.w, " %s%s\n", colorizeWithResets(levelColor, fmt.Sprintf("[%s] %s", levelStr, r.Message)), suffix)
	}

	return nil
}

func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &BotLogHandler{w: h.w, opts: h.opts, mu: h.mu, attrs: merged}
}

func (h *BotLogHandler) WithGroup(name string) slog.Handler { return h }

// --- Formatting Helpers ---

func getComponentColor(name string) *color.Color {
	switch name {
	case "DATABASE":
		return databaseColor
	case "LIBRARY":
		return libraryColor
	case "VOICE":
		return voiceColor
	case "COMMAND":
		return commandColor
	default:
		return color.New(color.FgCyan)
	}
}

func colorizeWithResets(c *color.Color, text string) string {
	if !strings.Contains(text, "\x1b[0m") {
		return c.Sprint(text)
	}

	marker := "@@@MSG@@@"
	wrapped := c.Sprint(marker)
	idx := strings.Index(wrapped, marker)
	if idx <= 0 {
		return text
	}
	startSeq := wrapped[:idx]

	modifiedText := strings.ReplaceAll(text, "\x1b[0m", "\x1b[0m"+startSeq)
	return c.Sprint(modifiedText)
}

// --- ANSI Stripper ---

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type StripANSIWriter struct {
	w io.Writer
}

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{w: w}
}

func (s *StripANSIWriter) Write(p []byte) (n int, err error) {
	_, err = s.w.Write(ansiPattern.ReplaceAll(p, nil))
	return len(p), err
}

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad   = "Failed to load config: %v"
	MsgConfigMissingToken   = "DISCORD_TOKEN is not set in .env file"
	MsgConfigInvalidGuildID = "invalid GUILD_ID: must be a valid Snowflake"
	MsgConfigOpusIgnored    = "OPUS_LIB_PATH=%s is ignored; opus is encoded through ffmpeg"
	MsgDatabaseInitSuccess  = "Database initialized successfully"
	MsgDatabaseTableError   = "Failed to create table: %w"
	MsgDatabasePragmaError  = "Failed to set pragma %s: %w"
	MsgDatabaseMigrated     = "Applied migration: %s"
	MsgDaemonStarting       = "Starting..."
	MsgDaemonStopping       = "Stopping..."
	MsgBotStarting          = "Starting %s..."
	MsgBotReady             = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown          = "Shutting down %s..."
	MsgBotRegisterFail      = "Command registration failed: %v"
	MsgBotSkipRegistration  = "Skipping command registration as requested."
	MsgBotKillingOld        = "Stopping running instance (PID: %d)..."
	MsgBotOldTerminated     = "Old instance terminated."
	MsgGenericError         = "%v"

	// --- Command Registry ---
	MsgLoaderPanicRecovered     = "Recovered from panic: %v"
	MsgLoaderSyncCommands       = "Syncing slash commands (%s)..."
	MsgLoaderRegistered         = "Registered slash command: %s"
	MsgLoaderGlobalClear        = "Clearing global slash commands..."
	MsgLoaderGlobalClearFail    = "Failed to clear global slash commands: %v"
	MsgLoaderGuildClear         = "Cleared slash commands in guild %s"
	MsgLoaderRegisterFail       = "Failed to register slash commands: %w"
	MsgLoaderUnknownPrefixCmd   = "Unknown command %q from %s"
	MsgLoaderDuplicateCommand   = "Command %q registered twice"
	MsgDispatchRateLimited      = "Rate limited %s in guild %s"
	MsgDispatchQueueFull        = "Command queue for guild %s is full, dropping %q"
	MsgDispatchWorkerIdle       = "Retired idle command worker for guild %s"
	MsgDispatchReplyFail        = "Failed to reply in channel %s: %v"
	MsgDispatchHandled          = "%s ran %q in guild %s (%s)"
	MsgDispatchPermissionDenied = "%s lacks Manage Server for %q in guild %s"

	// --- Library ---
	MsgLibraryPlaylistCreated = "Created %s playlist %q in guild %s"
	MsgLibraryPlaylistDeleted = "Deleted %s playlist %q in guild %s"
	MsgLibrarySongAdded       = "Added song %d to playlist %d"
	MsgLibraryExported        = "Exported %d playlists to %s"
	MsgLibraryImported        = "Imported %d playlists (%d new) and %d memberships from %s"

	// --- Voice ---
	MsgVoiceJoining         = "Joining channel %s in guild %s"
	MsgVoiceJoinFail        = "Failed to connect to voice in guild %s: %v"
	MsgVoiceQueued          = "Queued %d entries in guild %s"
	MsgVoiceStarting        = "Starting %s"
	MsgVoiceFinished        = "Finished %s"
	MsgVoicePlaybackError   = "Playback error in guild %s: %v"
	MsgVoiceStreamFail      = "Failed to resolve stream for %s: %v"
	MsgVoiceIdleArmed       = "Queue drained in guild %s, disconnecting in %s unless playback resumes"
	MsgVoiceIdleDisconnect  = "Disconnected from guild %s due to inactivity"
	MsgVoiceLeft            = "Left voice in guild %s"
	MsgVoiceExternalLeave   = "Bot disconnected by external event in guild %s"
	MsgVoiceShutdown        = "Shutting down voice coordinator..."
	MsgVoiceNotifyFail      = "Failed to notify channel %s: %v"
	MsgVoiceTranscoderError = "Transcoder failed for %s: %v"
	MsgVoiceStaleEvent      = "Dropped stale %s event for guild %s"
	MsgPresenceRotated      = "Presence: %s (next in %s)"
	MsgPresenceUpdateFail   = "Failed to update presence: %v"
)

// User-facing replies
const (
	MsgNotInVoice             = "You are not in a voice channel!"
	MsgIdleDisconnected       = "Disconnected due to inactivity."
	MsgSkipped                = "Skipped the current song."
	MsgNotPlaying             = "Not playing any music right now."
	MsgStopped                = "Stopped the music and left the channel."
	MsgNotConnected           = "I'm not connected to a voice channel."
	MsgPaused                 = "⏸️ Paused."
	MsgResumed                = "▶️ Resumed."
	MsgNothingToResume        = "Nothing is paused right now."
	MsgQueueEmpty             = "The queue is empty."
	MsgSongInfoFailed         = "Could not fetch song info. Please check the URL."
	MsgSongURLFailed          = "Could not find a song at that URL."
	MsgPlayNotFound           = "Could not find a playlist or a valid URL for `%s`."
	MsgPlaylistEmptyPlay      = "Playlist `%s` is empty!"
	MsgQueuingPlaylist        = "▶️ Queuing up **%d** songs from playlist `%s`."
	MsgQueuingSong            = "▶️ Queuing **%s**."
	MsgPersonalCreated        = "✅ Personal playlist `%s` created!"
	MsgPersonalExists         = "⚠️ You already have a playlist named `%s`."
	MsgPersonalMissing        = "You don't have a personal playlist named `%s`."
	MsgPersonalAdded          = "Added **%s** to your playlist `%s`."
	MsgPersonalDuplicate      = "That song is already in your playlist `%s`."
	MsgPersonalEmpty          = "Playlist `%s` is empty."
	MsgPersonalNone           = "You have no personal playlists in this server. Use `%sp create <name>` to make one!"
	MsgPersonalDeleted        = "🗑️ Personal playlist `%s` deleted."
	MsgPersonalInvalid        = "Invalid personal playlist command. Use `%shelp p` for more info."
	MsgServerCreated          = "✅ Server playlist `%s` created!"
	MsgServerExists           = "⚠️ A server playlist named `%s` already exists."
	MsgServerMissing          = "There is no server playlist named `%s`."
	MsgServerAdded            = "Added **%s** to server playlist `%s`."
	MsgServerDuplicate        = "That song is already in the server playlist `%s`."
	MsgServerEmpty            = "Server playlist `%s` is empty."
	MsgServerNone             = "This server has no playlists. Use `%ss create <name>` to make one!"
	MsgServerDeleted          = "🗑️ Server playlist `%s` deleted."
	MsgServerInvalid          = "Invalid server playlist command. Use `%shelp s` for more info."
	MsgPersonalShowTitle      = "🎵 %s's Playlist: %s"
	MsgPersonalListTitle      = "Your Playlists in %s"
	MsgServerShowTitle        = "🎵 Server Playlist: %s"
	MsgServerListTitle        = "Server Playlists in %s"
	MsgListMore               = "…and %d more"
	MsgJoinFailed             = "I couldn't join your voice channel."
	MsgQueueTitle             = "🎶 Queue"
	MsgQueueNowPlaying        = "**Now playing:** %s"
	MsgQueuePausedOn          = "**Paused:** %s"
	MsgQueueIdle              = "Nothing is playing. The queue is empty and I'll leave soon."
	MsgUsage                  = "Usage: `%s%s`"
	MsgSearchTitle            = "🔎 Results for `%s`"
	MsgSearchNoResults        = "No results for `%s`."
	MsgHelpTitle              = "Commands"
	MsgHelpFooter             = "Type `%shelp <command>` for details."
	MsgUnknownHelpTopic       = "There is no command named `%s`."
	ErrPermissionManageGuild  = "You need the **Manage Server** permission to do that."
	ErrGuildOnly              = "This command can only be used in a server."
	ErrSomethingWentWrong     = "Something went wrong while handling that command."
	ErrSlowDown               = "You're sending commands too fast. Slow down a little."
	MsgSessionStatsTitle      = "Session"
	MsgSessionStatsRenderFail = "Failed to respond to session stats: %v"
	MsgSessionStatusOn        = "✅ Status rotation enabled!"
	MsgSessionStatusOff       = "✅ Status rotation disabled!"
	MsgSessionStatusFail      = "Failed to update status visibility: %v"
)
