package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willibrandon/otengine/engine"
	"github.com/willibrandon/otengine/internal/logger"
	"github.com/willibrandon/otengine/op"
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/segment"
	"github.com/willibrandon/otengine/vector"
)

const (
	sessionA vector.SessionID = 1
	sessionB vector.SessionID = 2
)

type scenario struct {
	name     string
	describe string
	run      func() (string, error)
}

func simulateCmd() *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the canonical concurrent-edit scenarios and print the resulting buffer",
		Long: `simulate replays the canonical two-session scenarios (tie-break
insert, insert past delete, nested delete, selective undo, undo/redo
fold, compaction) against a fresh engine, so the transform laws can be
sanity-checked without writing Go.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range scenarios() {
				if only != "" && only != s.name {
					continue
				}
				fmt.Printf("== %s ==\n%s\n", s.name, s.describe)
				result, err := s.run()
				if err != nil {
					logger.Log.Error("scenario {Name} failed: {Error}", s.name, err)
					return err
				}
				fmt.Printf("buffer: %q\n\n", result)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&only, "scenario", "", "run only the named scenario (S1-S6)")
	return cmd
}

func scenarios() []scenario {
	return []scenario{
		{"S1", "concurrent insert tie-break: A and B both insert at position 1 of \"abc\"", scenarioS1},
		{"S2", "insert past delete: A deletes \"bcd\", B inserts at position 4", scenarioS2},
		{"S3", "delete fully inside delete: A deletes [1,4) \"bcd\", B deletes [2,3) \"c\"", scenarioS3},
		{"S4", "selective undo of an overwritten insert", scenarioS4},
		{"S5", "undo/redo fold against a concurrent insert", scenarioS5},
		{"S6", "compaction of adjacent same-owner segments", scenarioS6},
	}
}

func scenarioS1() (string, error) {
	e := engine.Restore(segment.FromBytes(vector.NoOwner, []byte("abc")), vector.New(), nil)
	base := vector.New()

	insertA := request.Do{UserID: sessionA, Vec: base, Operation: op.Insert{Position: 1, Buffer: segment.FromBytes(sessionA, []byte("X"))}}
	insertB := request.Do{UserID: sessionB, Vec: base, Operation: op.Insert{Position: 1, Buffer: segment.FromBytes(sessionB, []byte("Y"))}}

	if err := e.Submit(insertA); err != nil {
		return "", err
	}
	if err := e.Submit(insertB); err != nil {
		return "", err
	}
	return string(e.CurrentBuffer().Bytes()), nil
}

func scenarioS2() (string, error) {
	e := engine.Restore(segment.FromBytes(vector.NoOwner, []byte("abcdef")), vector.New(), nil)
	base := vector.New()

	del := request.Do{UserID: sessionA, Vec: base, Operation: op.Delete{Position: 1, What: op.Reversible(segment.FromBytes(vector.NoOwner, []byte("bcd")))}}
	ins := request.Do{UserID: sessionB, Vec: base, Operation: op.Insert{Position: 4, Buffer: segment.FromBytes(sessionB, []byte("Z"))}}

	if err := e.Submit(del); err != nil {
		return "", err
	}
	if err := e.Submit(ins); err != nil {
		return "", err
	}
	return string(e.CurrentBuffer().Bytes()), nil
}

func scenarioS3() (string, error) {
	e := engine.Restore(segment.FromBytes(vector.NoOwner, []byte("abcde")), vector.New(), nil)
	base := vector.New()

	delA := request.Do{UserID: sessionA, Vec: base, Operation: op.Delete{Position: 1, What: op.Reversible(segment.FromBytes(vector.NoOwner, []byte("bcd")))}}
	delB := request.Do{UserID: sessionB, Vec: base, Operation: op.Delete{Position: 2, What: op.Reversible(segment.FromBytes(vector.NoOwner, []byte("c")))}}

	if err := e.Submit(delA); err != nil {
		return "", err
	}
	if err := e.Submit(delB); err != nil {
		return "", err
	}
	return string(e.CurrentBuffer().Bytes()), nil
}

func scenarioS4() (string, error) {
	e := engine.Restore(segment.FromBytes(vector.NoOwner, []byte("ab")), vector.New(), nil)
	base := vector.New()

	insA := request.Do{UserID: sessionA, Vec: base, Operation: op.Insert{Position: 1, Buffer: segment.FromBytes(sessionA, []byte("X"))}}
	if err := e.Submit(insA); err != nil {
		return "", err
	}

	afterA := e.CurrentVector()
	delB := request.Do{UserID: sessionB, Vec: afterA, Operation: op.Delete{Position: 0, What: op.Reversible(segment.FromBytes(vector.NoOwner, []byte("aXb")))}}
	if err := e.Submit(delB); err != nil {
		return "", err
	}

	undoA := request.Undo{UserID: sessionA, Vec: afterA}
	if err := e.Submit(undoA); err != nil {
		return "", err
	}
	return string(e.CurrentBuffer().Bytes()), nil
}

func scenarioS5() (string, error) {
	e := engine.New()
	base := vector.New()

	insA := request.Do{UserID: sessionA, Vec: base, Operation: op.Insert{Position: 0, Buffer: segment.FromBytes(sessionA, []byte("X"))}}
	if err := e.Submit(insA); err != nil {
		return "", err
	}
	afterInsert := e.CurrentVector()

	undoA := request.Undo{UserID: sessionA, Vec: afterInsert}
	if err := e.Submit(undoA); err != nil {
		return "", err
	}
	afterUndo := e.CurrentVector()

	redoA := request.Redo{UserID: sessionA, Vec: afterUndo}
	if err := e.Submit(redoA); err != nil {
		return "", err
	}

	insB := request.Do{UserID: sessionB, Vec: base, Operation: op.Insert{Position: 0, Buffer: segment.FromBytes(sessionB, []byte("Y"))}}
	if err := e.Submit(insB); err != nil {
		return "", err
	}
	return string(e.CurrentBuffer().Bytes()), nil
}

func scenarioS6() (string, error) {
	buf := segment.FromSegments([]segment.Segment{
		{Owner: sessionA, Bytes: []byte("ab")},
		{Owner: sessionA, Bytes: []byte("cd")},
		{Owner: sessionB, Bytes: []byte("e")},
	})
	buf.Compact()

	replacement := segment.FromBytes(sessionB, []byte("X"))
	buf.Splice(0, 2, &replacement)

	return string(buf.Bytes()), nil
}
