package mcpserver

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tautline/taut/internal/memory"
)

// handleRun implements the taut_run tool.
func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (*sdk.CallToolResult, RunOutput, error) {
	if args.UnitID == "" {
		return nil, RunOutput{}, fmt.Errorf("'unit_id' parameter is required")
	}

	u, err := s.pools.LoadByID(args.UnitID)
	if err != nil {
		return nil, RunOutput{}, err
	}

	res := s.interp.Run(ctx, u, args.Input)
	s.log.Debug("ran unit", "unit", u.ID, "success", res.Success, "steps", len(res.History))

	return nil, RunOutput{
		Result:  res.Value,
		Success: res.Success,
		Errors:  res.Errors,
		Steps:   len(res.History),
	}, nil
}

// handleRecall implements the taut_recall tool.
func (s *Server) handleRecall(ctx context.Context, req *sdk.CallToolRequest, args RecallInput) (*sdk.CallToolResult, RecallOutput, error) {
	if args.Situation == "" {
		return nil, RecallOutput{}, fmt.Errorf("'situation' parameter is required")
	}

	s.book.Sense(ctx, args.Situation)
	activated, err := s.book.Activate()
	if err != nil {
		return nil, RecallOutput{}, err
	}

	out := RecallOutput{Memories: make([]RecalledMemory, 0, len(activated))}
	for _, m := range activated {
		out.Memories = append(out.Memories, RecalledMemory{
			ID:         m.ID,
			Intent:     m.Intent,
			Lesson:     lessonOf(m),
			Activation: m.Activation,
			Tension:    m.Tension,
		})
	}
	return nil, out, nil
}

func lessonOf(m *memory.Memory) string {
	if s, ok := m.Content["lesson"].(string); ok {
		return s
	}
	return ""
}

// handleLearn implements the taut_learn tool.
func (s *Server) handleLearn(ctx context.Context, req *sdk.CallToolRequest, args LearnInput) (*sdk.CallToolResult, LearnOutput, error) {
	if args.Task == "" {
		return nil, LearnOutput{}, fmt.Errorf("'task' parameter is required")
	}

	m, err := s.book.Learn(ctx, args.Task, args.Result, args.Success)
	if err != nil {
		return nil, LearnOutput{}, err
	}
	if m == nil {
		return nil, LearnOutput{Created: false}, nil
	}
	return nil, LearnOutput{Created: true, ID: m.ID, Intent: m.Intent}, nil
}

// handleFeedback implements the taut_feedback tool.
func (s *Server) handleFeedback(ctx context.Context, req *sdk.CallToolRequest, args FeedbackInput) (*sdk.CallToolResult, FeedbackOutput, error) {
	if len(args.MemoryIDs) == 0 {
		return nil, FeedbackOutput{}, fmt.Errorf("'memory_ids' parameter is required")
	}

	var used []*memory.Memory
	var out FeedbackOutput
	for _, id := range args.MemoryIDs {
		if m, ok := s.book.Get(id); ok {
			used = append(used, m)
		} else {
			out.Missing = append(out.Missing, id)
		}
	}

	if err := s.book.Feedback(used, args.Success); err != nil {
		return nil, FeedbackOutput{}, err
	}
	out.Updated = len(used)
	return nil, out, nil
}

// handlePools implements the taut_pools tool.
func (s *Server) handlePools(ctx context.Context, req *sdk.CallToolRequest, args PoolsInput) (*sdk.CallToolResult, PoolsOutput, error) {
	pools := []string{args.Pool}
	if args.Pool == "" {
		var err error
		pools, err = s.pools.Pools()
		if err != nil {
			return nil, PoolsOutput{}, err
		}
	}

	out := PoolsOutput{Members: []PoolMember{}}
	for _, p := range pools {
		names, err := s.pools.List(p)
		if err != nil {
			return nil, PoolsOutput{}, err
		}
		for _, name := range names {
			u, err := s.pools.Load(p, name)
			if err != nil {
				continue
			}
			member := PoolMember{
				Pool:        p,
				Name:        name,
				Intent:      u.Intent,
				Tension:     u.Tension,
				SuccessRate: 0.5,
			}
			if stats, ok := s.metrics.Stats(ctx, p+"/"+name); ok {
				member.SuccessRate = stats.SuccessRate
				member.Runs = stats.Runs
			}
			out.Members = append(out.Members, member)
		}
	}
	return nil, out, nil
}
