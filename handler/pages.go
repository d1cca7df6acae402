package handler

import (
	"context"
	"errors"
	"log/slog"

	"medai-intake/internal/domain"
	"medai-intake/internal/navigation"
	"medai-intake/internal/render"
	"medai-intake/internal/usecase"
)

type SymptomChecker interface {
	CheckSymptoms(ctx context.Context, input string) (navigation.Handoff, error)
}

type ProfileSubmitter interface {
	SubmitProfile(ctx context.Context, in navigation.Handoff, form *usecase.ProfileForm) (navigation.Handoff, error)
}

type DemoRequester interface {
	Request(ctx context.Context, email string) (string, error)
}

type ResultLoader interface {
	Load(ctx context.Context) (domain.DiagnosisResult, error)
	Reset(ctx context.Context)
}

// ConversationFactory starts a fresh conversation for each visit to the chat
// view.
type ConversationFactory func(h navigation.Handoff) (*usecase.Conversation, error)

// HomePage is the entry point. demo may be nil when demo capture is not
// configured.
type HomePage struct {
	term *Terminal
	demo DemoRequester
}

func NewHomePage(term *Terminal, demo DemoRequester) (*HomePage, error) {
	if term == nil {
		return nil, errors.New("handler: terminal must not be nil")
	}
	return &HomePage{term: term, demo: demo}, nil
}

func (p *HomePage) Route() navigation.Route { return navigation.RouteHome }

func (p *HomePage) Show(ctx context.Context, _ navigation.Handoff) (navigation.Transition, error) {
	p.term.Println(p.term.Styles().Header("MedAI 흉통 문진"))
	menu := "1) 증상 확인 시작"
	if p.demo != nil {
		menu += "\n2) 데모 요청"
	}
	menu += "\nq) 종료"

	choice, ok := p.term.Ask(menu)
	if !ok {
		return navigation.Exit(), nil
	}
	switch choice {
	case "1":
		return navigation.Go(navigation.RouteSymptomCheck, navigation.Handoff{}), nil
	case "2":
		if p.demo == nil {
			return navigation.Stay(), nil
		}
		email, ok := p.term.Ask("이메일 주소를 입력해주세요")
		if !ok {
			return navigation.Exit(), nil
		}
		msg, err := p.demo.Request(ctx, email)
		if err != nil {
			p.term.Println(p.term.Styles().Note(usecase.UserMessage(err)))
			return navigation.Stay(), nil
		}
		p.term.Println(msg)
		return navigation.Stay(), nil
	case "q", cmdQuit:
		return navigation.Exit(), nil
	}
	return navigation.Stay(), nil
}

// SymptomPage asks for free-text symptoms and checks them for chest pain.
type SymptomPage struct {
	term   *Terminal
	intake SymptomChecker
}

func NewSymptomPage(term *Terminal, intake SymptomChecker) (*SymptomPage, error) {
	if term == nil || intake == nil {
		return nil, errors.New("handler: symptom page dependencies must not be nil")
	}
	return &SymptomPage{term: term, intake: intake}, nil
}

func (p *SymptomPage) Route() navigation.Route { return navigation.RouteSymptomCheck }

func (p *SymptomPage) Show(ctx context.Context, _ navigation.Handoff) (navigation.Transition, error) {
	input, ok := p.term.Ask("어떤 증상이 있으신가요? (/back: 뒤로)")
	if !ok || input == cmdQuit {
		return navigation.Exit(), nil
	}
	if input == cmdBack {
		return navigation.Back(), nil
	}
	h, err := p.intake.CheckSymptoms(ctx, input)
	if err != nil {
		p.term.Alert(usecase.UserMessage(err))
		return navigation.Stay(), nil
	}
	return navigation.Go(navigation.RouteProfile, h), nil
}

// ProfilePage collects age, gender, height and weight.
type ProfilePage struct {
	term   *Terminal
	intake ProfileSubmitter
}

func NewProfilePage(term *Terminal, intake ProfileSubmitter) (*ProfilePage, error) {
	if term == nil || intake == nil {
		return nil, errors.New("handler: profile page dependencies must not be nil")
	}
	return &ProfilePage{term: term, intake: intake}, nil
}

func (p *ProfilePage) Route() navigation.Route { return navigation.RouteProfile }

func (p *ProfilePage) Show(ctx context.Context, in navigation.Handoff) (navigation.Transition, error) {
	p.term.Println(p.term.Styles().Header("개인 정보 입력"))
	form := &usecase.ProfileForm{}

	fields := []struct {
		label string
		set   func(string)
	}{
		{"나이", form.SetAge},
		{"성별 (1: 남성, 2: 여성)", func(v string) { form.SetGender(parseGender(v)) }},
		{"키 (cm)", form.SetHeight},
		{"체중 (kg)", form.SetWeight},
	}
	for _, f := range fields {
		v, ok := p.term.Ask(f.label)
		if !ok || v == cmdQuit {
			return navigation.Exit(), nil
		}
		if v == cmdBack {
			return navigation.Back(), nil
		}
		f.set(v)
	}

	if bmi, ok := form.BMI(); ok {
		p.term.Println(p.term.Styles().Note(render.BMI(bmi)))
	}

	out, err := p.intake.SubmitProfile(ctx, in, form)
	if err != nil {
		p.term.Alert(usecase.UserMessage(err))
		return navigation.Stay(), nil
	}
	return navigation.Go(navigation.RouteChat, out), nil
}

func parseGender(v string) domain.Gender {
	switch v {
	case "1", string(domain.GenderMale):
		return domain.GenderMale
	case "2", string(domain.GenderFemale):
		return domain.GenderFemale
	}
	return ""
}

// ChatPage runs the scripted conversation and moves to the result view once
// it finishes.
type ChatPage struct {
	term   *Terminal
	start  ConversationFactory
	logger *slog.Logger
}

func NewChatPage(term *Terminal, start ConversationFactory, logger *slog.Logger) (*ChatPage, error) {
	if term == nil || start == nil {
		return nil, errors.New("handler: chat page dependencies must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatPage{term: term, start: start, logger: logger}, nil
}

func (p *ChatPage) Route() navigation.Route { return navigation.RouteChat }

func (p *ChatPage) Show(ctx context.Context, in navigation.Handoff) (navigation.Transition, error) {
	conv, err := p.start(in)
	if err != nil {
		return navigation.Transition{}, err
	}
	conv.Start(ctx)

	styles := p.term.Styles()
	printed := 0
	flush := func() {
		snap := conv.Snapshot()
		for _, e := range snap.Transcript[printed:] {
			if e.Role == domain.RoleUser {
				continue
			}
			p.term.Println(styles.Entry(e))
		}
		printed = len(snap.Transcript)
	}
	flush()

	for {
		select {
		case <-conv.Done():
			p.logger.Debug("chat finished", "conversation_id", conv.Snapshot().ConversationID)
			return navigation.Go(navigation.RouteResult, in), nil
		default:
		}

		answer, ok := p.term.Ask("")
		if !ok || answer == cmdQuit {
			return navigation.Exit(), nil
		}
		if answer == cmdBack {
			return navigation.Back(), nil
		}
		if conv.Submit(ctx, answer) {
			flush()
		}
	}
}

// ResultPage shows the diagnosis and resets it on the way home.
type ResultPage struct {
	term    *Terminal
	results ResultLoader
}

func NewResultPage(term *Terminal, results ResultLoader) (*ResultPage, error) {
	if term == nil || results == nil {
		return nil, errors.New("handler: result page dependencies must not be nil")
	}
	return &ResultPage{term: term, results: results}, nil
}

func (p *ResultPage) Route() navigation.Route { return navigation.RouteResult }

func (p *ResultPage) Show(ctx context.Context, _ navigation.Handoff) (navigation.Transition, error) {
	styles := p.term.Styles()
	p.term.Println(styles.Muted.Render(render.Loading))

	// A failed list fetch still renders: an empty top list is the empty state.
	res, _ := p.results.Load(ctx)
	p.term.Println(styles.Result(res))

	choice, ok := p.term.Ask("Enter: 처음으로, /back: 뒤로, /quit: 종료")
	if !ok || choice == cmdQuit {
		return navigation.Exit(), nil
	}
	if choice == cmdBack {
		return navigation.Back(), nil
	}
	p.results.Reset(ctx)
	return navigation.Restart(), nil
}
