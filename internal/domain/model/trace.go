package model

// TraceStep — один шаг трассы принятия решений.
// Tier — уровень, Action — что произошло (hit, miss, skipped, error, merged...),
// Detail — человекочитаемое уточнение (причина пропуска, текст ошибки).
type TraceStep struct {
	Tier   Tier   `json:"tier"`
	Action string `json:"action"`
	Detail string `json:"detail,omitempty"`
}

// TierCombiner — псевдо-уровень для шагов слияния в трассе.
const TierCombiner Tier = "combiner"

// Действия шагов трассы.
const (
	TraceHit     = "hit"
	TraceMiss    = "miss"
	TraceSkipped = "skipped"
	TraceError   = "error"
	TraceMerged  = "merged"
	TraceStored  = "stored"
)

// ResolutionTrace — телеметрия одного запроса.
// Накапливается резолвером по ходу обработки и целиком попадает
// в metadata ответа. Не потокобезопасна: один экземпляр на запрос.
type ResolutionTrace struct {
	// QueryHash — fingerprint нормализованного запроса
	QueryHash string `json:"query_hash"`
	// CorrelationID — сквозной идентификатор запроса
	CorrelationID string `json:"correlation_id"`
	// Steps — шаги принятия решений в порядке выполнения
	Steps []TraceStep `json:"decision_trace"`
	// LatenciesMS — длительность обращения к каждому уровню, мс
	LatenciesMS map[string]float64 `json:"latencies_ms"`
	// Counts — число записей, полученных от каждого уровня
	Counts map[string]int `json:"counts"`
	// SourceSelected — первый уровень, давший непустой результат
	SourceSelected Tier `json:"source_selected"`
}

// NewResolutionTrace создаёт трассу с инициализированными картами.
func NewResolutionTrace(queryHash, correlationID string) *ResolutionTrace {
	return &ResolutionTrace{
		QueryHash:     queryHash,
		CorrelationID: correlationID,
		Steps:         make([]TraceStep, 0, 8),
		LatenciesMS:   make(map[string]float64),
		Counts:        make(map[string]int),
	}
}

// Add добавляет шаг в трассу.
func (t *ResolutionTrace) Add(tier Tier, action, detail string) {
	t.Steps = append(t.Steps, TraceStep{Tier: tier, Action: action, Detail: detail})
}

// Observe фиксирует длительность и число записей уровня.
func (t *ResolutionTrace) Observe(tier Tier, latencyMS float64, count int) {
	t.LatenciesMS[string(tier)] = latencyMS
	t.Counts[string(tier)] = count
}

// SelectSource выставляет source_selected, если он ещё не выбран.
// Первый непустой уровень в порядке fallback побеждает.
func (t *ResolutionTrace) SelectSource(tier Tier) {
	if t.SourceSelected == "" {
		t.SourceSelected = tier
	}
}
