package broker

import domain "main/internal/domain/entity/marketdata"

type BaseMessage struct {
	Bar *domain.IndicatorBar `json:"bar,omitempty"`
}
