package actions

import (
	"context"
	"testing"

	"github.com/blentz/artifacts-goap/internal/action"
	"github.com/blentz/artifacts-goap/internal/actioncontext"
	"github.com/blentz/artifacts-goap/internal/config"
	"github.com/blentz/artifacts-goap/internal/gameapi"
	"github.com/blentz/artifacts-goap/internal/knowledge"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

type fakeClient struct {
	moveCalls  []struct{ x, y int }
	fightResp  gameapi.FightResponse
	scanResult []gameapi.MonsterSchema
}

func (f *fakeClient) GetCharacter(ctx context.Context, name string) (gameapi.CharacterResponse, error) {
	return gameapi.CharacterResponse{}, nil
}

func (f *fakeClient) MoveCharacter(ctx context.Context, name string, x, y int) (gameapi.CharacterResponse, error) {
	f.moveCalls = append(f.moveCalls, struct{ x, y int }{x, y})
	return gameapi.CharacterResponse{Character: gameapi.Character{X: x, Y: y, HP: 100, MaxHP: 100}}, nil
}

func (f *fakeClient) GatherAt(ctx context.Context, name string) (gameapi.GatherResponse, error) {
	return gameapi.GatherResponse{ItemCode: "ash_wood", Quantity: 1}, nil
}

func (f *fakeClient) FightAt(ctx context.Context, name string) (gameapi.FightResponse, error) {
	return f.fightResp, nil
}

func (f *fakeClient) CraftItem(ctx context.Context, name, itemCode string, quantity int) (gameapi.CraftResponse, error) {
	return gameapi.CraftResponse{ItemCode: itemCode, Quantity: quantity}, nil
}

func (f *fakeClient) RestCharacter(ctx context.Context, name string) (gameapi.CharacterResponse, error) {
	return gameapi.CharacterResponse{Character: gameapi.Character{HP: 100, MaxHP: 100}}, nil
}

func (f *fakeClient) GetMap(ctx context.Context, x, y int) (gameapi.MapTile, error) {
	return gameapi.MapTile{X: x, Y: y, Kind: "empty"}, nil
}

func (f *fakeClient) ScanMonsters(ctx context.Context, x, y, radius int) ([]gameapi.MonsterSchema, error) {
	return f.scanResult, nil
}

var _ gameapi.Client = (*fakeClient)(nil)

func TestMove_ReadsCoordinatesWrittenByFindMonsters(t *testing.T) {
	d := Deps{Character: "bob", Knowledge: mustStore(t), Hunt: config.Hunt{DistanceWeight: 0.1, WinRateWeight: 1}, HuntRadius: 10}
	client := &fakeClient{}
	actx := actioncontext.New()

	actx.SetResult(worldstate.TargetX, 4)
	actx.SetResult(worldstate.TargetY, 7)

	result := move(d)(context.Background(), client, actx)
	if !result.Success {
		t.Fatalf("expected move to succeed, got error: %+v", result.Error)
	}
	if len(client.moveCalls) != 1 || client.moveCalls[0].x != 4 || client.moveCalls[0].y != 7 {
		t.Fatalf("expected move to be called with (4,7), got %+v", client.moveCalls)
	}
}

func TestMove_FailsWithoutTargetCoordinates(t *testing.T) {
	d := Deps{Character: "bob", Knowledge: mustStore(t)}
	result := move(d)(context.Background(), &fakeClient{}, actioncontext.New())
	if result.Success {
		t.Fatal("expected move to fail without target coordinates in the action context")
	}
	if result.Error.Kind != action.ErrorPrecondition {
		t.Errorf("expected a precondition error, got %v", result.Error.Kind)
	}
}

func TestAttack_RequestsGetHealthySubgoalBelowSafeHP(t *testing.T) {
	client := &fakeClient{fightResp: gameapi.FightResponse{
		CharacterResponse: gameapi.CharacterResponse{Character: gameapi.Character{HP: 10, MaxHP: 100}},
		Won:                true,
		MonsterCode:        "chicken",
		DamageTaken:         5,
	}}
	d := Deps{Character: "bob", Knowledge: mustStore(t)}
	result := attack(d)(context.Background(), client, actioncontext.New())
	if !result.Success {
		t.Fatalf("expected attack to succeed, got %+v", result.Error)
	}
	if result.Subgoal == nil || result.Subgoal.GoalName != "get_healthy" {
		t.Fatalf("expected a get_healthy subgoal request, got %+v", result.Subgoal)
	}
}

func TestAttack_NoSubgoalWhenHealthy(t *testing.T) {
	client := &fakeClient{fightResp: gameapi.FightResponse{
		CharacterResponse: gameapi.CharacterResponse{Character: gameapi.Character{HP: 90, MaxHP: 100}},
		Won:                true,
		MonsterCode:        "chicken",
	}}
	d := Deps{Character: "bob", Knowledge: mustStore(t)}
	result := attack(d)(context.Background(), client, actioncontext.New())
	if result.Subgoal != nil {
		t.Fatalf("expected no subgoal request while healthy, got %+v", result.Subgoal)
	}
}

func TestFindMonsters_ScansWhenNothingKnown(t *testing.T) {
	client := &fakeClient{scanResult: []gameapi.MonsterSchema{{Code: "chicken", Level: 1, X: 2, Y: 2}}}
	d := Deps{Character: "bob", Knowledge: mustStore(t), Hunt: config.Hunt{DistanceWeight: 0.1, WinRateWeight: 1}, HuntRadius: 10}
	actx := actioncontext.New()
	actx.Set(worldstate.LocationX, 0)
	actx.Set(worldstate.LocationY, 0)

	result := findMonsters(d)(context.Background(), client, actx)
	if !result.Success {
		t.Fatalf("expected find_monsters to succeed, got %+v", result.Error)
	}
	x, _ := actx.Get(worldstate.TargetX)
	y, _ := actx.Get(worldstate.TargetY)
	if x != 2 || y != 2 {
		t.Errorf("expected target coordinates (2,2), got (%v,%v)", x, y)
	}
}

func mustStore(t *testing.T) *knowledge.Store {
	t.Helper()
	store, err := knowledge.NewStore(t.TempDir() + "/knowledge.yaml")
	if err != nil {
		t.Fatalf("knowledge.NewStore: %v", err)
	}
	return store
}
