package database

import "quantsim/src/datamodels"

var DbTables = []interface{}{
	&datamodels.MetricGenerator{},
	&datamodels.Metric{},
	&datamodels.SimulationRun{},
	&datamodels.SimulationTrade{},
}
