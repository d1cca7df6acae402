package main

import (
	"io"

	"medai-intake/handler"
	"medai-intake/internal/navigation"
	"medai-intake/internal/usecase"
)

// buildFlow wires the use cases to the terminal pages.
func buildFlow(a *app, in io.Reader, out io.Writer) (*navigation.Flow, error) {
	term, err := handler.NewTerminal(in, out)
	if err != nil {
		return nil, err
	}

	intake, err := usecase.NewIntake(a.client, a.client, logger)
	if err != nil {
		return nil, err
	}
	results, err := usecase.NewResults(a.client, logger)
	if err != nil {
		return nil, err
	}

	var demo handler.DemoRequester
	if cfg.DemoRequestURL != "" {
		d, err := usecase.NewDemo(a.client, logger)
		if err != nil {
			return nil, err
		}
		demo = d
	}

	newConversation := func(h navigation.Handoff) (*usecase.Conversation, error) {
		return usecase.NewConversation(a.client, h,
			usecase.WithPacing(cfg.TurnDelay, cfg.FinishDelay),
			usecase.WithKeywordTimeout(cfg.KeywordTimeout),
			usecase.WithConversationRecorder(a.metrics),
			usecase.WithConversationLogger(logger),
		)
	}

	home, err := handler.NewHomePage(term, demo)
	if err != nil {
		return nil, err
	}
	symptoms, err := handler.NewSymptomPage(term, intake)
	if err != nil {
		return nil, err
	}
	profile, err := handler.NewProfilePage(term, intake)
	if err != nil {
		return nil, err
	}
	chat, err := handler.NewChatPage(term, newConversation, logger)
	if err != nil {
		return nil, err
	}
	result, err := handler.NewResultPage(term, results)
	if err != nil {
		return nil, err
	}
	return navigation.NewFlow(logger, home, symptoms, profile, chat, result)
}
