// Package screenplay drives HTTP APIs through actors: named personas that
// hold abilities, attempt interactions and remember the last response they
// received.
//
// Quick start:
//
//		ctx := context.Background()
//		juliet := screenplay.Named("Juliet").
//			WhoCan(screenplay.CallAnAPIAt("http://localhost:5050/api"))
//
//		err := juliet.AttemptsTo(ctx,
//			screenplay.Post.DataAsJSON(user).To("users"),
//			screenplay.Get.ResourceAt("users/7").
//				WithHeader("Authorization", "Bearer "+token).
//				WithQueryParameter("expand", "roles"),
//		)
//		status, _ := screenplay.Recall(juliet, screenplay.StatusCode())
//		name, _ := screenplay.Recall(juliet, screenplay.JSONPath("data.name"))
//
// Relative resources join the base URL with exactly one slash; absolute
// resources ignore it. Non-2xx statuses are responses, not errors.
//
// Tests replace the network with a Recorder:
//
//		rec := screenplay.NewRecorder()
//		rec.SetupResponse(screenplay.NewResponse(404, nil, nil))
//		romeo := screenplay.Named("Romeo").
//			WhoCan(screenplay.CallAnAPIAt("http://api").With(rec))
//		_ = romeo.AttemptsTo(ctx, screenplay.Delete.ResourceAt("users/7"))
//		sent, _ := rec.LastSent()
//
// Scenario files (TOML) describe actors and steps declaratively:
//
//		r, _ := screenplay.New(ctx)
//		sum, _ := r.RunFile(ctx, "users.toml", screenplay.RunOptions{
//			Vars:        map[string]string{"baseUrl": "http://localhost:5050"},
//			CSVFilePath: "users.csv", // or JSONFilePath
//		})
//		_ = screenplay.WriteReport("junit", "report.xml", sum)
//
// Hooks:
//
//		r, _ := screenplay.New(ctx,
//			screenplay.WithPreStepHook(func(ctx context.Context, info screenplay.HookInfo, req *http.Request, log pslog.Base) error {
//				req.Header.Set("X-Signature", sign(req))
//				return nil
//			}),
//		)
//
// Scenarios can be generated from an OpenAPI 3 or Swagger 2 document, one
// step per operation, each checked against the document when it is local:
//
//		_, err := screenplay.ImportOpenAPI(ctx, screenplay.ImportOptions{
//			Source:     "openapi.yaml",
//			OutputFile: "scenarios/api.toml",
//		})
package screenplay
