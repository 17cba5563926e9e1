package store

import (
	"context"
	"sync"

	"leave-bot/internal/model"
)

// MemoryLeaveRecords is an in-process store for development and tests.
type MemoryLeaveRecords struct {
	mu      sync.RWMutex
	records map[string]*model.LeaveRecord
}

func NewMemoryLeaveRecords(records ...model.LeaveRecord) *MemoryLeaveRecords {
	m := &MemoryLeaveRecords{records: make(map[string]*model.LeaveRecord, len(records))}
	for i := range records {
		m.records[records[i].EmployeeID] = records[i].Clone()
	}
	return m
}

func (m *MemoryLeaveRecords) FindByEmployeeID(_ context.Context, employeeID string) (*model.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[employeeID].Clone(), nil
}

func (m *MemoryLeaveRecords) AppendRequest(_ context.Context, employeeID string, req model.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[employeeID]
	if !ok {
		return nil
	}
	rec.LeaveRequests = append(rec.LeaveRequests, req)
	rec.LeavesTaken++
	return nil
}

func (m *MemoryLeaveRecords) QueryRequests(_ context.Context, employeeID string, match func(model.LeaveRequest) bool) ([]model.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[employeeID]
	if !ok {
		return nil, nil
	}
	return filterRequests(rec.LeaveRequests, match), nil
}
