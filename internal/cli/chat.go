// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - The interactive chat session.
//
// Flow: authenticate with AWS, resolve the model, offer the main menu
// (new chat or resume), then loop reading multiline prompts, streaming
// the model's markdown reply and saving the chat after each exchange.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrgrumpyowl/wilma/internal/bedrock"
	"github.com/mrgrumpyowl/wilma/internal/config"
	"github.com/mrgrumpyowl/wilma/internal/history"
	"github.com/mrgrumpyowl/wilma/internal/logging"
	"github.com/mrgrumpyowl/wilma/internal/models"
	"github.com/mrgrumpyowl/wilma/internal/ui"
	"github.com/mrgrumpyowl/wilma/internal/upload"
	"github.com/mrgrumpyowl/wilma/internal/websearch"
)

// resumeLimit caps the resume menu at the twenty newest chats.
const resumeLimit = 20

// modelClient is the slice of the bedrock client a session drives.
type modelClient interface {
	CreateMessage(ctx context.Context, req bedrock.Request) (string, error)
	CreateMessageStream(ctx context.Context, req bedrock.Request, cb bedrock.StreamCallback) (string, error)
}

// Session holds the state of one running chat.
type Session struct {
	client   modelClient
	store    *history.Store
	chat     *history.Chat
	renderer *ui.Renderer

	// search is nil when web search is disabled.
	search *websearch.Client

	// mu guards model, which the config watcher can swap mid-chat.
	mu    sync.Mutex
	model string
}

// RunChat is the entry point for the default command.
func RunChat(ctx context.Context, args Args) error {
	if err := logging.Init(args.Debug); err != nil {
		return err
	}
	defer logging.Sync()

	cfg, warnings, err := config.Load()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		ui.Warnf("%s", w)
	}

	auth, err := bedrock.CheckAuthentication(ctx)
	if err != nil {
		return err
	}
	ui.Successf("Authenticated to %s as %s", auth.Region, auth.Arn)

	client := bedrock.NewClient(auth.Cfg)

	model, err := resolveModel(ctx, client, auth.Cfg, args, cfg)
	if err != nil {
		if errors.Is(err, ui.ErrAborted) {
			return nil
		}
		return err
	}
	offerDefaultModel(model)
	ui.Infof("Chatting with %s.", models.FriendlyName(model))

	store, err := history.NewStore()
	if err != nil {
		return err
	}

	session := &Session{
		client:   client,
		store:    store,
		renderer: ui.NewRenderer(),
		search:   newSearchClient(args, cfg),
		model:    model,
	}

	if path, pathErr := config.Path(); pathErr == nil {
		if watcher, watchErr := config.NewWatcher(path, session.setModel); watchErr == nil {
			defer watcher.Close()
		} else {
			logging.L().Debug("config watcher unavailable", zap.Error(watchErr))
		}
	}

	if err := session.chooseChat(); err != nil {
		if errors.Is(err, ui.ErrAborted) {
			return nil
		}
		return err
	}

	return session.run(ctx)
}

// newSearchClient wires the Perplexity client when -ws is given and a
// key is present. A missing key downgrades to a warning so the chat
// still starts.
func newSearchClient(args Args, cfg *config.Config) *websearch.Client {
	if !args.WebSearch {
		return nil
	}
	if cfg.PerplexityAPIKey == "" {
		ui.Warnf("PERPLEXITY_API_KEY is not set, web search disabled.")
		return nil
	}
	ui.Infof("Web search via Perplexity enabled.")
	return websearch.NewClient(cfg.PerplexityAPIKey)
}

// setModel is the config watcher callback.
func (s *Session) setModel(model string) {
	s.mu.Lock()
	changed := model != s.model
	s.model = model
	s.mu.Unlock()

	if changed {
		ui.Infof("Default model changed to %s, applies from the next message.",
			models.FriendlyName(model))
	}
}

func (s *Session) currentModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// =============================================================================
// CHAT SELECTION
// =============================================================================

// chooseChat runs the main menu and leaves s.chat set to either a
// fresh chat or a resumed one. Without a terminal it starts a new chat
// directly.
func (s *Session) chooseChat() error {
	if !ui.IsTTY() {
		s.chat = s.store.NewChat(s.currentModel())
		return nil
	}

	idx, err := ui.Select("wilma", []ui.Option{
		{Label: "Start New Chat"},
		{Label: "Resume Recent Chat"},
		{Label: "Quit"},
	})
	if err != nil {
		return err
	}

	switch idx {
	case 0:
		s.chat = s.store.NewChat(s.currentModel())
		return nil
	case 1:
		return s.resumeChat()
	default:
		return ui.ErrAborted
	}
}

// resumeChat lists the newest saved chats and loads the chosen one.
func (s *Session) resumeChat() error {
	entries, err := s.store.List(resumeLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.Warnf("No saved chats found, starting a new one.")
		s.chat = s.store.NewChat(s.currentModel())
		return nil
	}

	idx, err := ui.Select("Resume a chat", resumeOptions(entries))
	if err != nil {
		return err
	}

	chat, err := s.store.Load(entries[idx].Path)
	if err != nil {
		return err
	}
	s.chat = chat
	if chat.Model != "" {
		s.setModel(chat.Model)
	}
	return nil
}

// resumeOptions labels each saved chat with its file stem, the name
// the user sees on disk, and previews the opening message.
func resumeOptions(entries []history.Entry) []ui.Option {
	options := make([]ui.Option, len(entries))
	for i, e := range entries {
		options[i] = ui.Option{
			Label:       e.Name,
			Description: e.Preview,
		}
	}
	return options
}

// =============================================================================
// CHAT LOOP
// =============================================================================

func (s *Session) run(ctx context.Context) error {
	fmt.Println(welcomeText)
	fmt.Println()

	for {
		input, err := ui.ReadPrompt()
		if errors.Is(err, ui.ErrAborted) {
			fmt.Println("Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
		if input == "" {
			continue
		}
		if isExitWord(input) {
			fmt.Println("Goodbye!")
			return nil
		}

		prompt := s.prepareInput(input)
		if prompt == "" {
			continue
		}

		if err := s.exchange(ctx, prompt, input); err != nil {
			if errors.Is(err, bedrock.ErrAuthExpired) {
				ui.Errorf("%v", err)
				return err
			}
			ui.Errorf("Request failed: %v", err)
		}
	}
}

// prepareInput expands an "Upload: <path>" request into the prompt the
// model receives. Returns "" when there is nothing to send.
func (s *Session) prepareInput(input string) string {
	req, ok := upload.DetectRequest(input)
	if !ok {
		return input
	}

	if req.IsDir {
		return s.prepareDirUpload(req.Path)
	}
	return s.prepareFileUpload(req.Path)
}

func (s *Session) prepareDirUpload(path string) string {
	res, err := upload.GenerateDirectoryMarkdown(path)
	if err != nil {
		ui.Errorf("Upload failed: %v", err)
		return upload.FailedUploadPrompt
	}
	if res.TooBig {
		ui.Warnf("DIRECTORY TOO BIG. Estimated %d tokens, the cap is %d.",
			res.Tokens, upload.MaxDirTokens)
		return ""
	}
	if res.Files == 0 {
		ui.Warnf("No readable text files found in %s.", path)
		return ""
	}
	ui.Infof("Uploading %d files, roughly %d tokens.", res.Files, res.Tokens)
	return upload.DirAnalysisPrompt(res.Markdown)
}

func (s *Session) prepareFileUpload(path string) string {
	if upload.IsBinary(path) {
		ui.Warnf("%s looks like a binary file, not uploading.", path)
		return ""
	}

	res, err := upload.ReadFile(path)
	if err != nil {
		ui.Errorf("Upload failed: %v", err)
		return upload.FailedUploadPrompt
	}
	if res.Empty {
		ui.Warnf("%s is empty, nothing to upload.", res.Name)
		return ""
	}
	if res.TooBig {
		ui.Warnf("FILE TOO BIG. Estimated %d tokens, the cap is %d.",
			res.Tokens, upload.MaxFileTokens)
		return ""
	}
	ui.Infof("Uploading %s, roughly %d tokens.", res.Name, res.Tokens)
	return upload.FileAnalysisPrompt(res.Name, res.Content)
}

// maybeSearch asks the model whether the prompt needs live data and,
// if so, injects Perplexity results into the conversation before the
// real exchange. Failures downgrade to warnings.
func (s *Session) maybeSearch(ctx context.Context, original string) {
	if s.search == nil {
		return
	}

	model := s.currentModel()
	temperature := 0.0
	if spec, ok := models.Get(model); ok {
		temperature = spec.Temperature
	}

	needed, query, err := websearch.ShouldSearch(ctx, s.client, model, temperature, original)
	if err != nil {
		ui.Warnf("Web search decision failed: %v", err)
		return
	}
	if !needed {
		return
	}

	ui.Infof("Searching the web for: %s", query)
	results, err := s.search.Search(ctx, query)
	if err != nil {
		ui.Warnf("Web search failed, answering from training data: %v", err)
		return
	}

	s.chat.Append(history.RoleAssistant, websearch.ResultsEnvelope(results))
	s.chat.Append(history.RoleUser, websearch.FollowupPrompt)
}

// exchange sends the conversation and streams the reply. The chat is
// saved after every completed exchange, and a partial reply from a
// broken stream is saved too so nothing typed or received is lost.
func (s *Session) exchange(ctx context.Context, prompt, original string) error {
	s.chat.Append(history.RoleUser, prompt)
	s.maybeSearch(ctx, original)

	model := s.currentModel()
	req := bedrock.Request{
		Model:    model,
		System:   systemPrompt(model, time.Now()),
		Messages: toChatMessages(s.chat.Messages),
	}
	if spec, ok := models.Get(model); ok {
		req.MaxTokens = spec.MaxTokens
		req.Temperature = spec.Temperature
	}

	text, err := s.send(ctx, req, streamingSupported(model))
	if err != nil {
		var streamErr *bedrock.StreamError
		if errors.As(err, &streamErr) && streamErr.Partial != "" {
			s.chat.Append(history.RoleAssistant, streamErr.Partial)
			s.save()
		}
		return err
	}

	s.chat.Append(history.RoleAssistant, text)
	s.save()
	return nil
}

// streamingSupported reports whether a model takes the streaming
// invoke. Models outside the catalog are assumed to stream.
func streamingSupported(model string) bool {
	spec, ok := models.Get(model)
	return !ok || spec.SupportsStreaming
}

// send runs one invocation. Streaming models paint deltas as they
// arrive; the rest get a buffered invoke and a single markdown render
// of the whole reply.
func (s *Session) send(ctx context.Context, req bedrock.Request, streaming bool) (string, error) {
	if !streaming {
		text, err := s.client.CreateMessage(ctx, req)
		if err != nil {
			return "", err
		}
		fmt.Print(s.renderer.Render(text))
		fmt.Println()
		return text, nil
	}

	display := ui.NewStreamDisplay(os.Stdout, s.renderer)
	text, err := s.client.CreateMessageStream(ctx, req, display.Write)
	display.Done()
	fmt.Println()
	return text, err
}

func (s *Session) save() {
	if err := s.store.Save(s.chat); err != nil {
		ui.Warnf("Could not save chat history: %v", err)
	}
}

func toChatMessages(msgs []history.Message) []bedrock.ChatMessage {
	out := make([]bedrock.ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = bedrock.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
