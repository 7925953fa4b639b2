package simulation

import (
	"github.com/sarchlab/kernelsim/datarecording"
	"github.com/sarchlab/kernelsim/kernel"
	"github.com/sarchlab/kernelsim/monitoring"
	"github.com/sarchlab/kernelsim/sim"
	"github.com/sarchlab/kernelsim/tracing"
)

// A Simulation ties a kernel to the services that observe it: the data
// recorder, the tracers and the monitor.
type Simulation struct {
	id     string
	kernel *kernel.Kernel

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	monitorURL   string
	dbTracer     *tracing.DBTracer
	faultTime    *tracing.TotalTimeTracer
	faultAvg     *tracing.AverageTimeTracer
	dispatches   *tracing.StepCountTracer

	components    []sim.Named
	compNameIndex map[string]int
}

// ID returns the unique identifier of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Kernel returns the simulated kernel.
func (s *Simulation) Kernel() *kernel.Kernel {
	return s.kernel
}

// GetDataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitor.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// PageFaultTime returns the ticks threads spent waiting on page faults.
func (s *Simulation) PageFaultTime() sim.VTimeInTick {
	return s.faultTime.TotalTime()
}

// AveragePageFaultTime returns the mean service time of a page fault.
func (s *Simulation) AveragePageFaultTime() float64 {
	return s.faultAvg.AverageTime()
}

// Dispatches returns how many times threads got the CPU, and how many
// distinct threads did.
func (s *Simulation) Dispatches() (dispatches, threads uint64) {
	return s.dispatches.GetStepCount(kernel.DispatchStep),
		s.dispatches.GetTaskCount(kernel.DispatchStep)
}

// RegisterComponent registers a component with the simulation and with the
// monitor.
func (s *Simulation) RegisterComponent(c sim.Named) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}
}

// Components returns all registered components.
func (s *Simulation) Components() []sim.Named {
	return s.components
}

// GetComponentByName returns the component with the given name, or nil.
func (s *Simulation) GetComponentByName(name string) sim.Named {
	i, found := s.compNameIndex[name]
	if !found {
		return nil
	}

	return s.components[i]
}

// Run runs the kernel until every thread exits.
func (s *Simulation) Run() error {
	return s.kernel.Run()
}

// Terminate writes the unfinished traces and closes the database.
func (s *Simulation) Terminate() {
	if s.dbTracer != nil {
		s.dbTracer.Terminate()
	}

	if s.dataRecorder != nil {
		s.dataRecorder.Close()
	}
}
