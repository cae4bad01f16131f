// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import "fmt"

// DirAnalysisPrompt wraps a rendered directory in the instruction the
// model receives as the user turn.
func DirAnalysisPrompt(markdown string) string {
	return "The following describes a directory structure along with all its contents in " +
		"Markdown format. Please carefully analyse the directory structure and the files " +
		"contained within. Pay attention to whether the directory structure looks like a " +
		"code repository. Then take a deep breath and provide a brief summary of your " +
		"analysis. End your response with an assurance that you have memorised the contents " +
		"of the repository and you are ready to answer the user's questions.\n\n" + markdown
}

// FileAnalysisPrompt wraps a single file in the instruction the model
// receives as the user turn.
func FileAnalysisPrompt(name, contents string) string {
	return fmt.Sprintf("Please analyse the contents of the following file:\n"+
		"\n%s\n"+
		"\n%s\n"+
		"\nEnd your response by asking the user what questions they have about the file.",
		name, contents)
}

// FailedUploadPrompt is sent when a file read fails, so the model
// acknowledges the failed upload instead of hallucinating content.
const FailedUploadPrompt = `I attempted to upload a file but it failed. For your next response reply ONLY: "No file was uploaded."`
