package strategies

import (
	"fmt"

	"quantsim/src/datamodels"
)

// SignalFunc classifies the latest tick of a price history.
type SignalFunc func(history []datamodels.Tick) datamodels.SignalType

// SeriesFunc classifies every tick of a price history.
type SeriesFunc func(history []datamodels.Tick) []datamodels.SignalType

type GetNameFunc func() string

type SignalFunctionSupplier interface {
	GetSignalFunc() SignalFunc
	GetSeriesFunc() SeriesFunc
	GetName() string
	// GetWindowSize is the number of trailing ticks GetSignalFunc needs to see.
	GetWindowSize() int
}

type GenericSignalFunctionSupplier struct {
	SignalFunc  SignalFunc
	SeriesFunc  SeriesFunc
	GetNameFunc GetNameFunc
	WindowSize  int
}

func NewSignalFunctionSupplier(
	signalFunc SignalFunc,
	seriesFunc SeriesFunc,
	getNameFunc GetNameFunc,
	windowSize int) GenericSignalFunctionSupplier {
	return GenericSignalFunctionSupplier{
		SignalFunc:  signalFunc,
		SeriesFunc:  seriesFunc,
		GetNameFunc: getNameFunc,
		WindowSize:  windowSize,
	}
}

func (s *GenericSignalFunctionSupplier) GetName() string {
	return s.GetNameFunc()
}

func (s *GenericSignalFunctionSupplier) GetSignalFunc() SignalFunc {
	return s.SignalFunc
}

func (s *GenericSignalFunctionSupplier) GetSeriesFunc() SeriesFunc {
	return s.SeriesFunc
}

func (s *GenericSignalFunctionSupplier) GetWindowSize() int {
	return s.WindowSize
}

// / SMA Crossover Strategy ///
func GetCrossoverSignalSupplier(shortWindow, longWindow int) SignalFunctionSupplier {
	supplier := NewSignalFunctionSupplier(
		func(history []datamodels.Tick) datamodels.SignalType {
			return ComputeSignal(history, shortWindow, longWindow)
		},
		func(history []datamodels.Tick) []datamodels.SignalType {
			return ComputeSignalSeries(history, shortWindow, longWindow)
		},
		func() string {
			return fmt.Sprintf("sma_crossover_%d_%d", shortWindow, longWindow)
		},
		max(shortWindow, longWindow)+1,
	)
	return &supplier
}

// / Hold Strategy ///
// never trades; a baseline that keeps the initial capital in cash
func GetHoldSignalSupplier() SignalFunctionSupplier {
	supplier := NewSignalFunctionSupplier(
		func(history []datamodels.Tick) datamodels.SignalType {
			return datamodels.SignalHold
		},
		func(history []datamodels.Tick) []datamodels.SignalType {
			return make([]datamodels.SignalType, len(history))
		},
		func() string {
			return "hold"
		},
		1,
	)
	return &supplier
}
