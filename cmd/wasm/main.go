//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"syscall/js"

	"github.com/rs/zerolog"

	"github.com/fablecraft/gofable/internal/migrate"
	"github.com/fablecraft/gofable/internal/store"
	"github.com/fablecraft/gofable/pkg/chat"
	"github.com/fablecraft/gofable/pkg/export"
	"github.com/fablecraft/gofable/pkg/generate"
	"github.com/fablecraft/gofable/pkg/mentions"
	"github.com/fablecraft/gofable/pkg/session"
	gosync "github.com/fablecraft/gofable/pkg/sync"
)

// Version info
const Version = "1.0.0"

// Global state
var (
	log       zerolog.Logger
	sqlStore  *store.SQLiteStore
	sess      *session.Session
	chatSvc   *chat.Service
	genClient *generate.Client
)

func main() {
	log = zerolog.New(os.Stdout).With().Timestamp().Logger()

	fmt.Println("[Fable] WASM Ready v" + Version)

	js.Global().Set("Fable", js.ValueOf(map[string]interface{}{
		"version": js.FuncOf(getVersion),
		"init":    js.FuncOf(initStore),
		// Story API
		"listStories":   requireStore(listStories),
		"loadStory":     requireStore(loadStory),
		"putStory":      requireStore(putStory),
		"deleteStory":   requireStore(deleteStory),
		"updateChapter": requireStore(updateChapter),
		"addChapter":    requireStore(addChapter),
		"deleteChapter": requireStore(deleteChapter),
		"reorderChaps":  requireStore(reorderChapters),
		"searchGlobal":  requireStore(searchGlobal),
		"replaceGlobal": requireStore(replaceGlobal),
		// Snapshot API
		"createSnapshot":  requireStore(createSnapshot),
		"listSnapshots":   requireStore(listSnapshots),
		"restoreSnapshot": requireStore(restoreSnapshot),
		"deleteSnapshot":  requireStore(deleteSnapshot),
		// Backup bookkeeping
		"backupStatus": requireStore(backupStatus),
		"recordExport": requireStore(recordExport),
		// Universe API
		"listUniverses":  requireStore(listUniverses),
		"putUniverse":    requireStore(putUniverse),
		"deleteUniverse": requireStore(deleteUniverse),
		// Chat API
		"chatHistory":    requireStore(chatHistory),
		"chatAppendUser": requireStore(chatAppendUser),
		"chatAppendAI":   requireStore(chatAppendAI),
		"chatClear":      requireStore(chatClear),
		// Export / import
		"exportMarkdown": requireStore(exportMarkdown),
		"exportJSON":     requireStore(exportJSON),
		"importStory":    requireStore(importStory),
		// Sync
		"syncRun": requireStore(syncRun),
		// Mentions
		"scanMentions": requireStore(scanMentions),
		// AI
		"configureAI":     js.FuncOf(configureAI),
		"chatStream":      requireStore(chatStream),
		"generateSection": requireStore(generateSection),
		"continueChapter": requireStore(continueChapter),
		"indexLore":       requireStore(indexLore),
		"relatedLore":     requireStore(relatedLore),
	}))

	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// requireStore rejects calls made before init.
func requireStore(fn func(js.Value, []js.Value) interface{}) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if sqlStore == nil {
			return errorResult("store not initialized: call init first")
		}
		return fn(this, args)
	})
}

// initStore: [dsn string (optional, default in-memory)]
func initStore(this js.Value, args []js.Value) interface{} {
	dsn := ":memory:"
	if len(args) > 0 && args[0].String() != "" {
		dsn = args[0].String()
	}

	var err error
	sqlStore, err = store.NewSQLiteStoreWithDSN(dsn)
	if err != nil {
		return errorResult("store init: " + err.Error())
	}
	sess = session.New(sqlStore, log)
	chatSvc = chat.NewService(sqlStore, log)
	return successResult("store ready: " + dsn)
}

// =============================================================================
// Story API
// =============================================================================

func listStories(this js.Value, args []js.Value) interface{} {
	stories, err := sqlStore.ListStories()
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(stories)
}

// loadStory: [id string]
func loadStory(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: id")
	}
	story, err := sess.Load(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(story)
}

// putStory: [storyJSON string]. Runs migration, persists, makes it current.
func putStory(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: storyJSON")
	}
	story := migrate.StoryFromJSON([]byte(args[0].String()))
	if err := sess.Open(story); err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(story)
}

// deleteStory: []. Deletes the loaded story and its satellite records.
func deleteStory(this js.Value, args []js.Value) interface{} {
	if err := sess.Delete(); err != nil {
		return errorResult(err.Error())
	}
	return successResult("deleted")
}

// updateChapter: [chapterID, title, content]
func updateChapter(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("requires 3 args: chapterID, title, content")
	}
	story, err := sess.UpdateChapter(args[0].String(), args[1].String(), args[2].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(story)
}

// addChapter: [title, type]
func addChapter(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: title, type")
	}
	story, id, err := sess.AddChapter(args[0].String(), args[1].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(map[string]any{"chapterId": id, "story": story})
}

// deleteChapter: [chapterID]
func deleteChapter(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: chapterID")
	}
	story, err := sess.DeleteChapter(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(story)
}

// reorderChapters: [idsJSON string]
func reorderChapters(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: idsJSON")
	}
	var order []string
	if err := json.Unmarshal([]byte(args[0].String()), &order); err != nil {
		return errorResult("ids json: " + err.Error())
	}
	story, err := sess.ReorderChapters(order)
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(story)
}

// searchGlobal: [term, matchCase bool, wholeWord bool]
func searchGlobal(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("requires 3 args: term, matchCase, wholeWord")
	}
	matches, err := sess.SearchGlobal(args[0].String(), session.Options{
		MatchCase: args[1].Bool(),
		WholeWord: args[2].Bool(),
	})
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(matches)
}

// replaceGlobal: [term, replacement, matchCase bool, wholeWord bool]
func replaceGlobal(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return errorResult("requires 4 args: term, replacement, matchCase, wholeWord")
	}
	res, err := sess.ReplaceGlobal(args[0].String(), args[1].String(), session.Options{
		MatchCase: args[2].Bool(),
		WholeWord: args[3].Bool(),
	})
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(res)
}

// =============================================================================
// Snapshot API
// =============================================================================

// createSnapshot: [chapterID, label]
func createSnapshot(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: chapterID, label")
	}
	v, err := sess.CreateSnapshot(args[0].String(), args[1].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(v)
}

// listSnapshots: [chapterID]
func listSnapshots(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: chapterID")
	}
	versions, err := sess.Snapshots(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(versions)
}

// restoreSnapshot: [versionID int]
func restoreSnapshot(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: versionID")
	}
	story, err := sess.RestoreSnapshot(int64(args[0].Int()))
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(story)
}

// deleteSnapshot: [versionID int]
func deleteSnapshot(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: versionID")
	}
	if err := sess.DeleteSnapshot(int64(args[0].Int())); err != nil {
		return errorResult(err.Error())
	}
	return successResult("snapshot deleted")
}

// =============================================================================
// Backup bookkeeping
// =============================================================================

func backupStatus(this js.Value, args []js.Value) interface{} {
	st, err := sess.BackupStatus()
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(st)
}

func recordExport(this js.Value, args []js.Value) interface{} {
	if err := sess.RecordExport(); err != nil {
		return errorResult(err.Error())
	}
	return successResult("export recorded")
}

// =============================================================================
// Universe API
// =============================================================================

func listUniverses(this js.Value, args []js.Value) interface{} {
	us, err := sqlStore.ListUniverses()
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(us)
}

// putUniverse: [universeJSON string]
func putUniverse(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: universeJSON")
	}
	u := migrate.UniverseFromJSON([]byte(args[0].String()))
	if err := sqlStore.UpsertUniverse(u); err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(u)
}

// deleteUniverse: [id string]
func deleteUniverse(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: id")
	}
	if err := sqlStore.DeleteUniverse(args[0].String()); err != nil {
		return errorResult(err.Error())
	}
	return successResult("universe deleted")
}

// =============================================================================
// Chat API
// =============================================================================

// chatHistory: [storyID]
func chatHistory(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: storyID")
	}
	sessn, err := chatSvc.History(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(sessn)
}

// chatAppendUser: [storyID, text]
func chatAppendUser(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: storyID, text")
	}
	sessn, err := chatSvc.AppendUser(args[0].String(), args[1].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(sessn)
}

// chatAppendAI: [storyID, text]
func chatAppendAI(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: storyID, text")
	}
	sessn, err := chatSvc.AppendAI(args[0].String(), args[1].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(sessn)
}

// chatClear: [storyID]
func chatClear(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: storyID")
	}
	if err := chatSvc.Clear(args[0].String()); err != nil {
		return errorResult(err.Error())
	}
	return successResult("chat cleared")
}

// =============================================================================
// Export / import
// =============================================================================

func exportMarkdown(this js.Value, args []js.Value) interface{} {
	story := sess.Current()
	if story == nil {
		return errorResult("no story loaded")
	}
	doc, err := export.Markdown(story)
	if err != nil {
		return errorResult(err.Error())
	}
	return doc
}

func exportJSON(this js.Value, args []js.Value) interface{} {
	story := sess.Current()
	if story == nil {
		return errorResult("no story loaded")
	}
	doc, err := export.JSON(story)
	if err != nil {
		return errorResult(err.Error())
	}
	return doc
}

// importStory: [document string, format "markdown"|"json"]
func importStory(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: document, format")
	}
	var raw map[string]any
	var err error
	if args[1].String() == "json" {
		raw, err = export.ParseJSON([]byte(args[0].String()))
	} else {
		raw, err = export.ParseMarkdown(args[0].String())
	}
	if err != nil {
		return errorResult(err.Error())
	}

	story := migrate.Story(raw)
	if err := sess.Open(story); err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(story)
}

// =============================================================================
// Sync
// =============================================================================

// syncRun: [userID, remoteStoriesJSON, remoteUniversesJSON]. The page fetches
// the user's remote documents with the Firebase JS SDK, which holds the auth
// session in the browser, and hands them in here. The engine merges them into
// the local store and returns the records the page must write back.
func syncRun(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("requires 3 args: userID, remoteStoriesJSON, remoteUniversesJSON")
	}
	remote := &gosync.StagedRemote{}
	if err := json.Unmarshal([]byte(args[1].String()), &remote.Stories); err != nil {
		return errorResult("remote stories json: " + err.Error())
	}
	if err := json.Unmarshal([]byte(args[2].String()), &remote.Universes); err != nil {
		return errorResult("remote universes json: " + err.Error())
	}

	res := gosync.NewEngine(sqlStore, remote, log).Run(context.Background(), args[0].String())
	return jsonResult(map[string]any{
		"result":          res,
		"uploadStories":   remote.UploadStories,
		"uploadUniverses": remote.UploadUniverses,
	})
}

// =============================================================================
// Mentions
// =============================================================================

// scanMentions: []. Per-chapter entity mention counts for the current story.
func scanMentions(this js.Value, args []js.Value) interface{} {
	story := sess.Current()
	if story == nil {
		return errorResult("no story loaded")
	}
	sc, err := mentions.NewScanner(story)
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(sc.ScanStory(story))
}

// =============================================================================
// AI
// =============================================================================

// configureAI: [apiKey, model, embedModel (optional)]
func configureAI(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires at least 2 args: apiKey, model")
	}
	cfg := generate.Config{APIKey: args[0].String(), Model: args[1].String()}
	if len(args) > 2 {
		cfg.EmbedModel = args[2].String()
	}
	genClient = generate.NewClient(cfg, log)
	return successResult("AI client ready")
}

func requireAI() interface{} {
	if genClient == nil {
		return errorResult("AI not configured: call configureAI first")
	}
	return nil
}

// chatStream: [text, onChunk, onDone]. The network call runs off the event
// loop; chunks and the final result arrive through the callbacks.
func chatStream(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("requires 3 args: text, onChunk, onDone")
	}
	if res := requireAI(); res != nil {
		return res
	}
	story := sess.Current()
	if story == nil {
		return errorResult("no story loaded")
	}
	text := args[0].String()
	onChunk, onDone := args[1], args[2]
	go func() {
		reply, err := chatSvc.StreamReply(context.Background(), genClient, story, text, func(chunk string) {
			onChunk.Invoke(chunk)
		})
		if err != nil {
			onDone.Invoke(errorResult(err.Error()))
			return
		}
		onDone.Invoke(jsonResult(map[string]any{"reply": reply}))
	}()
	return successResult("streaming")
}

// generateSection: [kind, category, onDone]
func generateSection(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("requires 3 args: kind, category, onDone")
	}
	if res := requireAI(); res != nil {
		return res
	}
	story := sess.Current()
	if story == nil {
		return errorResult("no story loaded")
	}
	kind := generate.SectionKind(args[0].String())
	category := args[1].String()
	onDone := args[2]
	go func() {
		res, err := genClient.GenerateSection(context.Background(), story, kind, category)
		if err != nil {
			onDone.Invoke(errorResult(err.Error()))
			return
		}
		onDone.Invoke(jsonResult(res))
	}()
	return successResult("generating")
}

// continueChapter: [chapterID, onDone]
func continueChapter(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("requires 2 args: chapterID, onDone")
	}
	if res := requireAI(); res != nil {
		return res
	}
	story := sess.Current()
	if story == nil {
		return errorResult("no story loaded")
	}
	chapterID := args[0].String()
	onDone := args[1]
	go func() {
		text, err := genClient.ContinueChapter(context.Background(), story, chapterID)
		if err != nil {
			onDone.Invoke(errorResult(err.Error()))
			return
		}
		onDone.Invoke(jsonResult(map[string]any{"text": text}))
	}()
	return successResult("generating")
}

// indexLore: [onDone]. Embeds every lore entry of the current story into the
// vector index.
func indexLore(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("requires 1 arg: onDone")
	}
	if res := requireAI(); res != nil {
		return res
	}
	onDone := args[0]
	go func() {
		n, err := sess.IndexLore(context.Background(), genClient)
		if err != nil {
			onDone.Invoke(errorResult(err.Error()))
			return
		}
		onDone.Invoke(jsonResult(map[string]any{"indexed": n}))
	}()
	return successResult("indexing")
}

// relatedLore: [text, k, onDone]
func relatedLore(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("requires 3 args: text, k, onDone")
	}
	if res := requireAI(); res != nil {
		return res
	}
	text := args[0].String()
	k := args[1].Int()
	onDone := args[2]
	go func() {
		entries, err := sess.RelatedLore(context.Background(), genClient, text, k)
		if err != nil {
			onDone.Invoke(errorResult(err.Error()))
			return
		}
		onDone.Invoke(jsonResult(entries))
	}()
	return successResult("searching")
}

// =============================================================================
// Helpers
// =============================================================================

func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

func successResult(msg string) interface{} {
	result := map[string]interface{}{
		"success": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

func jsonResult(v any) interface{} {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult("marshal: " + err.Error())
	}
	return string(jsonBytes)
}
