package sys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/godave/golibdave"
	"github.com/disgoorg/snowflake/v2"
)

// safeGo runs a function in a new goroutine with panic recovery
func safeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError(MsgLoaderPanicRecovered, r)
				fmt.Printf("%s\n", debug.Stack())
			}
		}()
		f()
	}()
}

// --- Global State & Setup ---

var AppContext = context.Background()
var daemonsOnce sync.Once
var StartupTime = time.Now()

var commands = []discord.ApplicationCommandCreate{}
var commandHandlers = map[string]func(event *events.ApplicationCommandInteractionCreate){}
var voiceStateUpdateHandlers []func(event *events.GuildVoiceStateUpdate, receivedAt time.Time)
var commandDispatcher *Dispatcher

func SetAppContext(ctx context.Context) {
	AppContext = ctx
}

// SetDispatcher installs the dispatcher that receives prefix commands.
func SetDispatcher(d *Dispatcher) {
	commandDispatcher = d
}

// --- Bot Initialization ---

// CreateClient creates and configures a disgo client
func CreateClient(ctx context.Context, cfg *Config) (*bot.Client, error) {
	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMembers,
				gateway.IntentMessageContent,
				gateway.IntentGuildVoiceStates,
			),
			gateway.WithPresenceOpts(
				gateway.WithListeningActivity(cfg.Prefix+"help"),
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagMembers, cache.FlagRoles, cache.FlagChannels, cache.FlagVoiceStates),
		),
		bot.WithVoiceManagerConfigOpts(
			voice.WithDaveSessionCreateFunc(golibdave.NewSession),
		),
		bot.WithEventListenerFunc(onApplicationCommandInteraction),
		bot.WithEventListenerFunc(onGuildMessageCreate),
		bot.WithEventListenerFunc(onVoiceStateUpdate),
		bot.WithEventListenerFunc(onReady),
		bot.WithLogger(slog.Default()),
		bot.WithRestClientConfigOpts(
			rest.WithHTTPClient(&http.Client{
				Timeout: 60 * time.Second,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 50,
					IdleConnTimeout:     90 * time.Second,
				},
			}),
		),
	)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// --- Command & Handler Registration ---

func RegisterCommand(cmd discord.ApplicationCommandCreate, handler func(event *events.ApplicationCommandInteractionCreate)) {
	commands = append(commands, cmd)
	switch c := cmd.(type) {
	case discord.SlashCommandCreate:
		commandHandlers[c.CommandName()] = handler
	case discord.UserCommandCreate:
		commandHandlers[c.CommandName()] = handler
	case discord.MessageCommandCreate:
		commandHandlers[c.CommandName()] = handler
	}
}

// RegisterVoiceStateUpdateHandler adds a handler run on its own goroutine.
// receivedAt is stamped in gateway order, before the handler is scheduled.
func RegisterVoiceStateUpdateHandler(handler func(event *events.GuildVoiceStateUpdate, receivedAt time.Time)) {
	voiceStateUpdateHandlers = append(voiceStateUpdateHandlers, handler)
}

// --- Command Syncing Logic ---

func calculateCommandHash(cmds []discord.ApplicationCommandCreate) string {
	data, err := json.Marshal(cmds)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// RegisterCommands syncs slash commands to GUILD_ID (development) or
// globally. Unchanged command sets are skipped unless forceScan is set, in
// which case stale guild registrations are cleared as well.
func RegisterCommands(ctx context.Context, client *bot.Client, guildIDStr string, forceScan bool) error {
	currentMode := "global"
	if guildIDStr != "" {
		currentMode = "guild"
	}
	LogInfo(MsgLoaderSyncCommands, strings.ToUpper(currentMode))

	currentHash := calculateCommandHash(commands)
	lastHash, _ := GetBotConfig(ctx, "last_cmd_hash")
	lastMode, _ := GetBotConfig(ctx, "last_reg_mode")
	lastGuildID, _ := GetBotConfig(ctx, "last_guild_id")

	if currentHash != "" && currentHash == lastHash && currentMode == lastMode && lastGuildID == guildIDStr && !forceScan {
		LogInfo("Commands are up to date. (Hash: %s)", currentHash[:8])
		return nil
	}

	var created []discord.ApplicationCommand
	var err error
	if guildIDStr == "" {
		created, err = client.Rest.SetGlobalCommands(client.ApplicationID, commands, rest.WithCtx(ctx))
	} else {
		guildID, parseErr := snowflake.Parse(guildIDStr)
		if parseErr != nil {
			return fmt.Errorf("invalid GUILD_ID: %w", parseErr)
		}
		created, err = client.Rest.SetGuildCommands(client.ApplicationID, guildID, commands, rest.WithCtx(ctx))
		if err == nil && (lastMode != currentMode || forceScan) {
			LogInfo(MsgLoaderGlobalClear)
			if _, clearErr := client.Rest.SetGlobalCommands(client.ApplicationID, []discord.ApplicationCommandCreate{}, rest.WithCtx(ctx)); clearErr != nil {
				LogWarn(MsgLoaderGlobalClearFail, clearErr)
			}
		}
	}
	if err != nil {
		return fmt.Errorf(MsgLoaderRegisterFail, err)
	}
	for _, cmd := range created {
		LogInfo(MsgLoaderRegistered, cmd.Name())
	}

	if lastGuildID != "" && lastGuildID != guildIDStr {
		if oldID, err := snowflake.Parse(lastGuildID); err == nil {
			if _, err := client.Rest.SetGuildCommands(client.ApplicationID, oldID, []discord.ApplicationCommandCreate{}, rest.WithCtx(ctx)); err == nil {
				LogInfo(MsgLoaderGuildClear, lastGuildID)
			}
		}
	}

	_ = SetBotConfig(ctx, "last_reg_mode", currentMode)
	_ = SetBotConfig(ctx, "last_guild_id", guildIDStr)
	if currentHash != "" {
		_ = SetBotConfig(ctx, "last_cmd_hash", currentHash)
	}
	return nil
}

// --- Event Handlers ---

func onReady(event *events.Ready) {
	botUser := event.User
	duration := time.Since(StartupTime)
	LogInfo(MsgBotReady, botUser.Username, botUser.ID.String(), os.Getpid(), duration.Milliseconds())

	StartDaemons(AppContext)
}

func onApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	if h, ok := commandHandlers[event.Data.CommandName()]; ok {
		safeGo(func() { h(event) })
	}
}

func onGuildMessageCreate(event *events.GuildMessageCreate) {
	if event.Message.Author.Bot || commandDispatcher == nil || GlobalConfig == nil {
		return
	}
	name, args, ok := ParseCommand(GlobalConfig.Prefix, event.Message.Content)
	if !ok {
		return
	}
	if _, known := LookupPrefixCommand(name); !known {
		return
	}
	commandDispatcher.Dispatch(NewCommandEvent(AppContext, event, name, args, GlobalConfig.Prefix))
}

func onVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	receivedAt := time.Now()
	for _, h := range voiceStateUpdateHandlers {
		safeGo(func() { h(event, receivedAt) })
	}
}

// --- Daemon System ---

type daemonEntry struct {
	starter func(ctx context.Context) (bool, func(), func())
	logger  func(format string, v ...any)
}

var registeredDaemons []daemonEntry
var activeShutdownHooks []func()
var activeShutdownMu sync.Mutex

// RegisterDaemon registers a background daemon with a logger and start
// function. The starter reports whether the daemon should run, its run loop,
// and an optional shutdown hook.
func RegisterDaemon(logger func(format string, v ...any), starter func(ctx context.Context) (bool, func(), func())) {
	registeredDaemons = append(registeredDaemons, daemonEntry{starter: starter, logger: logger})
}

// StartDaemons starts all registered daemons once per process.
func StartDaemons(ctx context.Context) {
	daemonsOnce.Do(func() {
		for _, daemon := range registeredDaemons {
			ok, run, shutdown := daemon.starter(ctx)
			if !ok || run == nil {
				continue
			}
			if shutdown != nil {
				activeShutdownMu.Lock()
				activeShutdownHooks = append(activeShutdownHooks, shutdown)
				activeShutdownMu.Unlock()
			}
			daemon.logger(MsgDaemonStarting)
			safeGo(run)
		}
	})
}

// ShutdownDaemons runs every shutdown hook concurrently and waits for them.
func ShutdownDaemons(ctx context.Context) {
	activeShutdownMu.Lock()
	defer activeShutdownMu.Unlock()

	var wg sync.WaitGroup
	for _, shutdown := range activeShutdownHooks {
		wg.Add(1)
		go func(s func()) {
			defer wg.Done()
			s()
		}(shutdown)
	}
	wg.Wait()
	activeShutdownHooks = nil
}
