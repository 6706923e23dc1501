package meeting

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/internal/textsim"
	"github.com/BaSui01/meetingflow/llm"
	"github.com/BaSui01/meetingflow/meeting/control"
	"github.com/BaSui01/meetingflow/meeting/deliberation"
	"github.com/BaSui01/meetingflow/meeting/evaluation"
	"github.com/BaSui01/meetingflow/types"
)

// 连续生成失败达到该次数时中止会议
const failureAbortThreshold = 3

// 生成失败时落入转录的占位发言
const degradedPlaceholder = "(no statement this turn)"

// Option 配置编排器的可选项。
type Option func(*Orchestrator)

// WithSink 挂接事件接收端（日志、指标等）。
func WithSink(s Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithRNG 注入随机源。确定性测试模式用固定种子。
func WithRNG(rng *rand.Rand) Option {
	return func(o *Orchestrator) { o.rng = rng }
}

// Orchestrator 驱动一场会议的完整生命周期。
// 实例只能 Run 一次；多场会议各建各的实例，互不共享状态。
type Orchestrator struct {
	cfg      *config.MeetingConfig
	provider llm.Provider
	logger   *zap.Logger
	rng      *rand.Rand
	sink     Sink

	gen      *deliberation.Generator
	eval     *evaluation.Evaluator
	feedback *control.KPIFeedback
	monitor  *control.Monitor
	pending  *control.PendingTracker
	shock    *control.ShockState

	id         string
	state      types.MeetingState
	transcript types.Transcript
	phases     []types.Phase
	controls   []types.ControlEvent
	kpiHist    []types.KPISnapshot
	unresolved []int
	params     control.TunableParams
	critiques  int

	order        []string
	hints        []string
	lastSummary  string
	lastSpoke    map[string]int
	lastSaid     map[string]string
	failStreak   int
	lastGoodTurn int

	closingAt  int    // 进入 closing 时的转录长度
	forceClose string // 回合边界上决定的提前关闭理由
	resChanged bool   // 消化阶段：本回合内残課題集合に変化があったか
	startedAt  time.Time
}

// New 创建会议编排器。配置校验失败时直接返回错误（fail fast）。
func New(cfg *config.MeetingConfig, provider llm.Provider, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Finalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:       cfg,
		provider:  provider,
		logger:    logger.With(zap.String("component", "meeting")),
		id:        uuid.New().String(),
		state:     types.StateRunning,
		order:     cfg.AgentNames(),
		lastSpoke: make(map[string]int),
		lastSaid:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		seed := cfg.Backend.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		o.rng = rand.New(rand.NewSource(seed))
	}

	runtime := cfg.Runtime()
	o.critiques = runtime.CritiquePasses
	o.params = control.TunableParams{
		Temperature: runtime.Temperature,
		SelectTemp:  cfg.Selection.SelectTemp,
		SimPenalty:  cfg.Selection.SimPenalty,
		Cooldown:    cfg.Selection.Cooldown,
	}

	o.gen = deliberation.New(cfg, provider, logger, o.rng)
	o.eval = evaluation.New(cfg)
	o.feedback = control.NewKPIFeedback(cfg, o.eval)
	o.monitor = control.NewMonitor(cfg)
	o.pending = control.NewPendingTracker()
	o.shock = control.NewShockState(control.NewShockEngine(cfg, o.rng))
	return o, nil
}

// ID 返回会议标识。
func (o *Orchestrator) ID() string { return o.id }

// Run 执行整场会议：阶段序列 → 残課題消化 → 最终纪要。
// 外部停止通过 ctx 取消表达：当前发言完成后有序收尾，结果标记 stopped。
// 连续生成失败超限时返回 MeetingAbortError，同时仍返回部分结果。
func (o *Orchestrator) Run(ctx context.Context) (*types.MeetingResult, error) {
	o.startedAt = time.Now()
	o.logger.Info("meeting started",
		zap.String("meeting_id", o.id),
		zap.String("topic", o.cfg.Topic),
		zap.Int("agents", len(o.order)),
		zap.String("backend", o.cfg.Backend.Name))
	o.emit(Event{Kind: EventMeetingStarted, Topic: o.cfg.Topic})

	for _, kind := range types.DefaultPhaseSequence {
		if o.cfg.MaxPhases > 0 && len(o.phases) >= o.cfg.MaxPhases {
			break
		}
		if kind == types.PhaseResolution {
			// 消化阶段只有在启用且还有残課題时才进场
			o.pending.Initial()
			if !o.cfg.ResolvePhase || o.pending.Count() == 0 {
				continue
			}
			o.state = types.StateResolving
		}

		phase := o.openPhase(kind)
		err := o.runPhase(ctx, phase)
		if o.state == types.StateResolving {
			o.state = types.StateRunning
		}
		switch {
		case err == context.Canceled || ctx.Err() != nil:
			o.state = types.StateStopped
			return o.finalize(context.Background(), false), nil
		case err != nil:
			o.state = types.StateStopped
			return o.finalize(context.Background(), false), err
		}
	}

	return o.finalize(ctx, true), nil
}

// runPhase 在单个阶段内循环出话，直到阶段关闭。
func (o *Orchestrator) runPhase(ctx context.Context, phase *types.Phase) error {
	for {
		if ctx.Err() != nil {
			return context.Canceled
		}

		turn, err := o.produceTurn(ctx, phase)
		if err != nil {
			return err
		}
		o.transcript.Append(turn)
		appended, _ := o.transcript.Last()
		phase.TurnCount++
		o.lastSpoke[appended.Speaker] = o.transcript.Len()
		if !appended.Degraded {
			o.lastSaid[appended.Speaker] = appended.Text
			o.lastGoodTurn = appended.Index
		}
		o.emit(Event{Kind: EventTurn, Round: appended.Round, Turn: &appended})
		o.logger.Debug("turn appended",
			zap.Int("index", appended.Index),
			zap.String("speaker", appended.Speaker),
			zap.Bool("degraded", appended.Degraded))

		o.postTurn(ctx, phase, appended)

		if reason, ok := o.shouldClose(phase); ok {
			o.closePhase(phase, reason)
			return nil
		}
	}
}

// produceTurn 生成一条发言。单次失败退化为占位发言；
// 连续失败超限时返回 MeetingAbortError。
func (o *Orchestrator) produceTurn(ctx context.Context, phase *types.Phase) (types.Turn, error) {
	round := o.transcript.Len()/len(o.order) + 1
	tc := deliberation.TurnContext{
		PhaseGoal:   phase.Goal,
		Recent:      o.recentText(o.cfg.Chat.Window),
		LastSummary: o.lastSummary,
		Hints:       o.takeHints(),
		Temperature: o.params.Temperature,
		MaxTokens:   o.cfg.Backend.MaxTokens,
	}
	if phase.Kind == types.PhaseResolution {
		if items := o.pending.Items(); len(items) > 0 {
			show := items
			if len(show) > 3 {
				show = show[:3]
			}
			tc.Hints = append(tc.Hints, "Settle these open items one by one: "+strings.Join(show, "; "))
		}
	}

	var speaker, text, thought string
	var err error
	if o.cfg.Think.Enabled {
		speaker, text, thought, err = o.thinkTurn(ctx, tc)
	} else {
		speaker = o.order[o.transcript.Len()%len(o.order)]
		text, err = o.gen.PlainSpeak(ctx, speaker, tc)
	}
	if err == nil && text != "" {
		for i := 0; i < o.critiques; i++ {
			text, _ = o.gen.CritiquePass(ctx, speaker, tc, text)
		}
	}

	degraded := false
	if err != nil || strings.TrimSpace(text) == "" {
		o.failStreak++
		failure := &types.GenerationFailure{Agent: speaker, Turn: o.transcript.Len() + 1, Cause: err}
		o.logger.Warn("turn generation failed, degrading",
			zap.Int("streak", o.failStreak), zap.Error(failure))
		if o.failStreak >= failureAbortThreshold {
			return types.Turn{}, &types.MeetingAbortError{
				LastGoodTurn:  o.lastGoodTurn,
				FailureStreak: o.failStreak,
				Cause:         err,
			}
		}
		text = degradedPlaceholder
		degraded = true
	} else {
		o.failStreak = 0
	}

	turn := types.NewTurn(0, round, phase.ID, speaker, text)
	turn.Thought = thought
	turn.Degraded = degraded
	return turn, nil
}

// thinkTurn 思考→審査→発言パイプライン。
func (o *Orchestrator) thinkTurn(ctx context.Context, tc deliberation.TurnContext) (speaker, text, thought string, err error) {
	thinkTC := tc
	thinkTC.Temperature = minFloat(o.params.SelectTemp+0.1, 0.9)

	thoughts := make(map[string]string, len(o.order))
	var candidates []deliberation.CandidateThought
	var lastErr error
	for _, name := range o.order {
		th, thinkErr := o.gen.Think(ctx, name, thinkTC)
		if thinkErr != nil || strings.TrimSpace(th) == "" {
			lastErr = thinkErr
			o.logger.Warn("think failed for agent", zap.String("agent", name), zap.Error(thinkErr))
			continue
		}
		thoughts[name] = th
		candidates = append(candidates, deliberation.CandidateThought{Agent: name, Thought: th})
	}
	if len(candidates) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no usable thoughts produced")
		}
		return "", "", "", lastErr
	}

	st := o.selectionState()
	verdict, judgeErr := o.gen.JudgeThoughts(ctx, tc, candidates)
	if judgeErr != nil {
		o.logger.Warn("judge failed, falling back to rotation", zap.Error(judgeErr))
		speaker = o.order[o.transcript.Len()%len(o.order)]
	} else {
		speaker = o.gen.ResolveWinner(verdict, st)
	}
	thought = thoughts[speaker]
	if thought == "" {
		speaker = candidates[0].Agent
		thought = candidates[0].Thought
	}

	text, err = o.gen.Speak(ctx, speaker, tc, thought)
	return speaker, text, thought, err
}

// postTurn 每条发言后的簿记：摘要探针、残課題、监视、回合边界控制。
func (o *Orchestrator) postTurn(ctx context.Context, phase *types.Phase, turn types.Turn) {
	o.gen.RecordFlow(turn.Speaker + ": " + turn.Text)

	if o.cfg.SummaryProbe.Enabled && !turn.Degraded {
		summary, err := o.gen.RoundSummary(ctx, fmt.Sprintf("%s: %s", turn.Speaker, turn.Text))
		if err != nil {
			o.logger.Warn("summary probe failed, skipping", zap.Error(err))
		} else if summary != "" {
			o.lastSummary = summary
			if phase.Kind == types.PhaseResolution {
				o.reconcilePending(summary)
			} else {
				o.pending.AddFromText(summary)
			}
			o.gen.RecordFlow(summary)
			for _, name := range o.order {
				for _, line := range strings.Split(summary, "\n") {
					o.gen.Memory().Add(name, strings.TrimLeft(strings.TrimSpace(line), "- "))
				}
			}
			o.emit(Event{Kind: EventRoundSummary, Round: turn.Round, Summary: summary})
		}
	}

	o.unresolved = append(o.unresolved, o.pending.Count())
	keep := o.cfg.Monitor.PhaseWindow
	if keep < 4 {
		keep = 4
	}
	if len(o.unresolved) > keep {
		o.unresolved = o.unresolved[len(o.unresolved)-keep:]
	}

	if o.cfg.Monitor.Enabled {
		if ev := o.monitor.Observe(o.transcript.All(), o.unresolved, o.cfg.Monitor.PhaseWindow); ev != nil {
			o.handlePhaseEvent(phase, turn, ev)
		}
	}

	// 预算还剩最后一轮时进入 closing，留一条收尾发言
	if phase.Status == types.PhaseActive && phase.TurnBudget > 1 && phase.TurnCount == phase.TurnBudget-1 {
		o.markClosing(phase, "turn_budget")
	}

	if o.transcript.Len()%len(o.order) == 0 {
		o.roundBoundary(ctx, phase, turn)
	}
}

// reconcilePending 消化阶段的残課題再対帳：最新摘要抽取的集合整体替换
// 当前集合。摘要不再提及的项视为已解决，新提及的项照常计入。
func (o *Orchestrator) reconcilePending(summary string) {
	extracted := control.ExtractItems(summary)

	changed := len(extracted) != o.pending.Count()
	if !changed {
		for item := range extracted {
			if !o.pending.Has(item) {
				changed = true
				break
			}
		}
	}
	o.pending.Replace(extracted)
	if changed {
		o.resChanged = true
	}
	if o.pending.Count() == 0 {
		o.forceClose = "resolved"
	}
}

// roundBoundary 回合边界：KPI 反馈、均衡重排、消化判定、shock TTL。
func (o *Orchestrator) roundBoundary(ctx context.Context, phase *types.Phase, turn types.Turn) {
	if assessment, ok := o.feedback.Assess(o.transcript.All(), o.unresolved); ok {
		snap := assessment.Metrics
		o.kpiHist = append(o.kpiHist, snap)
		o.emit(Event{Kind: EventKPI, Round: turn.Round, KPI: &snap})
		if !assessment.Empty() {
			o.applyAssessment(turn, assessment)
		}
	}

	if !o.cfg.Think.Enabled && len(o.order) > 1 {
		o.reorderByModerator(ctx)
	}

	if phase.Kind == types.PhaseResolution && o.forceClose == "" {
		// 残課題が空なら完了。1 ラウンド通して集合が動かなければ打ち切り。
		switch {
		case o.pending.Count() == 0:
			o.forceClose = "resolved"
		case !o.resChanged:
			o.forceClose = "stalled"
		}
		o.resChanged = false
	}

	if o.shock.Tick(&o.params) {
		o.syncParams()
		o.logger.Info("shock expired, baseline restored")
	}
}

// applyAssessment 把反馈控制器的产出落到参数、提示与 shock 上。
func (o *Orchestrator) applyAssessment(turn types.Turn, a control.Assessment) {
	triggers, thresholds := o.describeTriggers(a.Metrics)

	if len(a.Tune) > 0 {
		ctrl := types.NewControlEvent(o.transcript.Len(), turn.Round, types.ActionTemperatureAdjusted)
		ctrl.Triggers = triggers
		ctrl.Thresholds = thresholds
		ctrl.Adjustments = make(map[string]float64, len(a.Tune))
		for param, d := range a.Tune {
			before := o.paramValue(param)
			after := textsim.Clamp(before+d.Delta, d.Min, d.Max)
			o.setParam(param, after)
			ctrl.Adjustments[param] = after - before
		}
		o.recordControl(ctrl)
	}

	if len(a.Hints) > 0 && o.cfg.KPI.AutoPrompt {
		o.hints = append(o.hints, a.Hints...)
		ctrl := types.NewControlEvent(o.transcript.Len(), turn.Round, types.ActionPromptHintInjected)
		ctrl.Triggers = triggers
		ctrl.Thresholds = thresholds
		ctrl.Hint = strings.Join(a.Hints, " / ")
		o.recordControl(ctrl)
	}

	wantShock := a.TriggerShock || (a.ShockMode != "" && a.Metrics.Stall)
	if wantShock && o.cfg.Shock != control.ShockOff {
		mode := a.ShockMode
		if mode == "" {
			mode = o.cfg.Shock
		}
		applied := o.shock.Activate(&o.params, control.ShockContext{
			Mode:       mode,
			Metrics:    a.Metrics,
			HasMetrics: true,
		}, o.cfg.ShockTTL)
		if len(applied) > 0 {
			o.syncParams()
			ctrl := types.NewControlEvent(o.transcript.Len(), turn.Round, types.ActionShockActivated)
			ctrl.Triggers = triggers
			if a.ShockReason != "" {
				ctrl.Triggers = append(ctrl.Triggers, a.ShockReason)
			}
			ctrl.Adjustments = applied
			o.recordControl(ctrl)
			o.logger.Info("shock activated",
				zap.String("mode", mode), zap.Int("ttl", o.cfg.ShockTTL))
		}
	}
}

// handlePhaseEvent 处理监视器的阶段检测跃迁。
func (o *Orchestrator) handlePhaseEvent(phase *types.Phase, turn types.Turn, ev *control.PhaseEvent) {
	phase.Cohesion = ev.Cohesion

	if ev.Status == control.PhaseEventConfirmed {
		if phase.Status == types.PhaseActive {
			o.markClosing(phase, ev.Reason)
			ctrl := types.NewControlEvent(o.transcript.Len(), turn.Round, types.ActionPhaseNudged)
			ctrl.Triggers = []string{ev.Reason}
			o.recordControl(ctrl)
		}
		if o.cfg.Shock != control.ShockOff {
			metrics, has := o.latestKPI()
			applied := o.shock.Activate(&o.params, control.ShockContext{
				Mode:       o.cfg.Shock,
				Metrics:    metrics,
				HasMetrics: has,
			}, o.cfg.ShockTTL)
			if len(applied) > 0 {
				ev.ShockUsed = o.cfg.Shock
				o.syncParams()
				ctrl := types.NewControlEvent(o.transcript.Len(), turn.Round, types.ActionShockActivated)
				ctrl.Triggers = []string{ev.Reason}
				ctrl.Adjustments = applied
				o.recordControl(ctrl)
			}
		}
	}

	o.emit(Event{Kind: EventPhase, Round: turn.Round, Phase: phase, PhaseNote: ev})
	o.logger.Info("phase event",
		zap.String("status", string(ev.Status)),
		zap.String("reason", ev.Reason),
		zap.Float64("confidence", ev.Confidence))
}

// reorderByModerator 非思考模式的均衡抽选：司会者打分后把当选者排到队首。
func (o *Orchestrator) reorderByModerator(ctx context.Context) {
	base := o.gen.ModeratorScores(ctx, o.recentText(o.cfg.Chat.Window))
	winner := o.gen.SelectSpeaker(base, o.selectionState())
	if winner == "" || winner == o.order[0] {
		return
	}
	reordered := make([]string, 0, len(o.order))
	reordered = append(reordered, winner)
	for _, name := range o.order {
		if name != winner {
			reordered = append(reordered, name)
		}
	}
	o.order = reordered
}

// ---------------------------------------------------------------------------
// 阶段生命周期
// ---------------------------------------------------------------------------

func (o *Orchestrator) openPhase(kind types.PhaseKind) *types.Phase {
	phase := types.Phase{
		ID:         len(o.phases) + 1,
		Kind:       kind,
		Goal:       o.cfg.PhaseGoalFor(kind),
		TurnBudget: o.cfg.PhaseTurnLimitFor(kind),
		StartTurn:  o.transcript.Len() + 1,
		Status:     types.PhaseActive,
	}
	o.phases = append(o.phases, phase)
	o.closingAt = 0
	o.forceClose = ""
	o.resChanged = false
	o.eval.PhaseReset()
	active := &o.phases[len(o.phases)-1]
	o.emit(Event{Kind: EventPhase, Phase: active})
	o.logger.Info("phase opened",
		zap.Int("phase_id", active.ID),
		zap.String("kind", string(kind)),
		zap.Int("turn_budget", active.TurnBudget))
	return active
}

func (o *Orchestrator) markClosing(phase *types.Phase, reason string) {
	if phase.Status != types.PhaseActive {
		return
	}
	phase.Status = types.PhaseClosing
	phase.CloseReason = reason
	o.closingAt = o.transcript.Len()
	o.logger.Info("phase closing",
		zap.Int("phase_id", phase.ID), zap.String("reason", reason))
}

// shouldClose 判断当前阶段是否应当关闭。
func (o *Orchestrator) shouldClose(phase *types.Phase) (string, bool) {
	if o.forceClose != "" {
		return o.forceClose, true
	}
	if phase.BudgetExhausted() {
		reason := phase.CloseReason
		if reason == "" {
			reason = "turn_budget"
		}
		return reason, true
	}
	if phase.Status == types.PhaseClosing && o.transcript.Len() > o.closingAt {
		return phase.CloseReason, true
	}
	return "", false
}

// closePhase 关闭阶段并复位阶段内控制状态。
func (o *Orchestrator) closePhase(phase *types.Phase, reason string) {
	phase.Status = types.PhaseClosed
	if reason != "" {
		phase.CloseReason = reason
	}
	o.monitor.Reset()
	o.hints = nil
	o.forceClose = ""
	if o.shock.Clear(&o.params) {
		o.syncParams()
	}
	o.emit(Event{Kind: EventPhase, Phase: phase})
	o.logger.Info("phase closed",
		zap.Int("phase_id", phase.ID),
		zap.String("reason", phase.CloseReason),
		zap.Int("turns", phase.TurnCount))
}

// ---------------------------------------------------------------------------
// 收尾
// ---------------------------------------------------------------------------

// finalize 汇总 MeetingResult。synth 为 true 时调用 LLM 生成最终纪要。
func (o *Orchestrator) finalize(ctx context.Context, synth bool) *types.MeetingResult {
	if o.state != types.StateStopped {
		o.state = types.StateFinalizing
	}
	initial := o.pending.Initial()

	var notes string
	if synth {
		n, err := o.gen.FinalNotes(ctx, o.pending.Items())
		if err != nil {
			o.logger.Warn("final notes synthesis failed", zap.Error(err))
		} else {
			notes = n
		}
	}
	sections := deliberation.ParseFinalNotes(notes)
	openIssues := sections.OpenIssues
	if len(openIssues) == 0 {
		openIssues = o.pending.Items()
	}

	finalKPI := o.eval.Final(o.transcript.All(), initial, o.pending.Count(), notes)
	if o.state != types.StateStopped {
		o.state = types.StateDone
	}

	agents := make([]types.Agent, 0, len(o.cfg.Agents))
	for _, a := range o.cfg.Agents {
		agents = append(agents, a.Agent())
	}
	result := &types.MeetingResult{
		ID:          o.id,
		Topic:       o.cfg.Topic,
		State:       o.state,
		Agents:      agents,
		Turns:       o.transcript.All(),
		Phases:      append([]types.Phase(nil), o.phases...),
		Agreement:   strings.Join(sections.Agreed, "\n"),
		OpenIssues:  openIssues,
		NextActions: strings.Join(sections.NextActions, "\n"),
		FinalKPI:    finalKPI,
		Controls:    append([]types.ControlEvent(nil), o.controls...),
		StartedAt:   o.startedAt,
		FinishedAt:  time.Now(),
	}
	o.emit(Event{Kind: EventMeetingFinished, Topic: o.cfg.Topic, Result: result})
	o.logger.Info("meeting finished",
		zap.String("state", string(o.state)),
		zap.Int("turns", len(result.Turns)),
		zap.Int("phases", len(result.Phases)),
		zap.Float64("progress", finalKPI.Progress))
	return result
}

// ---------------------------------------------------------------------------
// 小物
// ---------------------------------------------------------------------------

func (o *Orchestrator) emit(e Event) {
	if o.sink == nil {
		return
	}
	e.Timestamp = time.Now()
	e.MeetingID = o.id
	o.sink.Emit(e)
}

func (o *Orchestrator) recordControl(ctrl types.ControlEvent) {
	o.controls = append(o.controls, ctrl)
	o.emit(Event{Kind: EventControl, Round: ctrl.Round, Control: &ctrl})
}

func (o *Orchestrator) takeHints() []string {
	if len(o.hints) == 0 {
		return nil
	}
	hints := o.hints
	o.hints = nil
	return hints
}

func (o *Orchestrator) selectionState() deliberation.SelectionState {
	metrics, has := o.latestKPI()
	previous := ""
	if last, ok := o.transcript.Last(); ok {
		previous = last.Speaker
	}
	return deliberation.SelectionState{
		GlobalTurn:    o.transcript.Len(),
		Previous:      previous,
		LastSpoke:     o.lastSpoke,
		LastUtterance: o.lastSaid,
		RecentText:    strings.Join(o.transcript.Texts(o.cfg.Selection.SimWindow), " "),
		Metrics:       metrics,
		HasMetrics:    has,
	}
}

func (o *Orchestrator) latestKPI() (types.KPISnapshot, bool) {
	if len(o.kpiHist) == 0 {
		return types.KPISnapshot{}, false
	}
	return o.kpiHist[len(o.kpiHist)-1], true
}

func (o *Orchestrator) recentText(n int) string {
	window := o.transcript.Window(n)
	parts := make([]string, 0, len(window))
	for _, t := range window {
		parts = append(parts, t.Speaker+": "+t.Text)
	}
	return strings.Join(parts, " / ")
}

func (o *Orchestrator) describeTriggers(m types.KPISnapshot) ([]string, map[string]float64) {
	var triggers []string
	thresholds := make(map[string]float64)
	if m.Diversity < o.cfg.KPI.DiversityMin {
		triggers = append(triggers, "diversity")
		thresholds["diversity"] = o.cfg.KPI.DiversityMin
	}
	if m.DecisionDensity < o.cfg.KPI.DecisionMin {
		triggers = append(triggers, "decision_density")
		thresholds["decision_density"] = o.cfg.KPI.DecisionMin
	}
	if m.Stall {
		triggers = append(triggers, "stall")
	}
	if len(thresholds) == 0 {
		thresholds = nil
	}
	return triggers, thresholds
}

func (o *Orchestrator) paramValue(param string) float64 {
	switch param {
	case "temperature":
		return o.params.Temperature
	case "select_temp":
		return o.params.SelectTemp
	case "sim_penalty":
		return o.params.SimPenalty
	case "cooldown":
		return o.params.Cooldown
	}
	return 0
}

func (o *Orchestrator) setParam(param string, value float64) {
	switch param {
	case "temperature":
		o.params.Temperature = value
	case "select_temp":
		o.params.SelectTemp = value
	case "sim_penalty":
		o.params.SimPenalty = value
	case "cooldown":
		o.params.Cooldown = value
	}
	o.syncParams()
}

// syncParams 把运行时参数回写到配置，供发言者裁决读取。
// 原始基线由 ShockState 负责保存与恢复。
func (o *Orchestrator) syncParams() {
	o.cfg.Selection.SelectTemp = o.params.SelectTemp
	o.cfg.Selection.SimPenalty = o.params.SimPenalty
	o.cfg.Selection.Cooldown = o.params.Cooldown
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
