package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"leave-bot/internal/model"
)

// FileLeaveRecords stores every record in one JSON array document. Each
// mutation reads the whole file and writes it back; mu serializes those
// cycles within the process.
type FileLeaveRecords struct {
	path string
	mu   sync.Mutex
}

func NewFileLeaveRecords(path string) *FileLeaveRecords {
	return &FileLeaveRecords{path: path}
}

func (s *FileLeaveRecords) FindByEmployeeID(_ context.Context, employeeID string) (*model.LeaveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	if i := indexOf(records, employeeID); i >= 0 {
		return &records[i], nil
	}
	return nil, nil
}

// AppendRequest is a no-op for unknown employees.
func (s *FileLeaveRecords) AppendRequest(_ context.Context, employeeID string, req model.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(records, employeeID)
	if i < 0 {
		return nil
	}
	records[i].LeaveRequests = append(records[i].LeaveRequests, req)
	records[i].LeavesTaken++
	return s.save(records)
}

func (s *FileLeaveRecords) QueryRequests(_ context.Context, employeeID string, match func(model.LeaveRequest) bool) ([]model.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(records, employeeID)
	if i < 0 {
		return nil, nil
	}
	return filterRequests(records[i].LeaveRequests, match), nil
}

func (s *FileLeaveRecords) load() ([]model.LeaveRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read leave records: %w", err)
	}
	return DecodeLeaveRecords(data)
}

func (s *FileLeaveRecords) save(records []model.LeaveRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode leave records: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".leave-records-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write leave records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace leave records: %w", err)
	}
	return nil
}

// DecodeLeaveRecords parses the JSON array document format.
func DecodeLeaveRecords(data []byte) ([]model.LeaveRecord, error) {
	var records []model.LeaveRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode leave records: %w", err)
	}
	return records, nil
}

// LoadLeaveRecords reads a JSON array document from disk.
func LoadLeaveRecords(path string) ([]model.LeaveRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeLeaveRecords(data)
}

func indexOf(records []model.LeaveRecord, employeeID string) int {
	for i := range records {
		if records[i].EmployeeID == employeeID {
			return i
		}
	}
	return -1
}
