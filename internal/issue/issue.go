// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	CommandNotFoundId
	DependencyCycleId
	IncludeCycleId
	ShellNotFoundId
	PrivilegeRequiredId
	ValidationFailedId
	ConfigLoadFailedId
	ScriptFailedId
	EnvFileMissingId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

// Issue is one catalog entry: a rendered Markdown guide for a known
// failure mode, keyed by Id.
type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
	extLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No grovefile found!

We searched for a grovefile but couldn't find one in the current
directory or any directory above it.

## Things you can try:
- Create a grovefile in your project:
~~~
$ grove init
~~~

- Or move to the directory that has one:
~~~
$ cd /path/to/your/project
$ grove list
~~~

## Example grovefile:
~~~
build():
    script: go build ./...

test():
    depends: build
    script: go test ./...
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse the grovefile!

Your grovefile contains a syntax error.

## Common issues:
- Indentation that is not a multiple of 4 spaces, or uses tabs
- A command header missing its parentheses or trailing colon
- An unknown directive key
- A block opened with ` + "`|`" + ` that has no indented content

## Things you can try:
- Check the line and column named in the error message above
- Validate the whole file:
~~~
$ grove check
~~~

## Example of a valid command:
~~~
greet(name = "world"):
    desc: Say hello
    script: echo "hello {{name}}"
~~~`,
	}

	commandNotFoundIssue = &Issue{
		id: CommandNotFoundId,
		mdMsg: `
# Command not found!

The command path you invoked is not defined in the grovefile.

## Things you can try:
- List every available command:
~~~
$ grove list
~~~

- Check for typos; nested commands join with ':'
~~~
$ grove run ci:unit
~~~

- Use tab completion:
~~~
$ grove run <TAB>
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Command dependencies form a loop, which would run forever.

## Example of a cycle:
~~~
a():
    depends: b
    script: echo a

b():
    depends: a    # a -> b -> a
    script: echo b
~~~

## Things you can try:
- Review the depends lines named in the error
- Break the loop so dependencies flow one way
- Run 'grove check' to see the full dependency graph`,
	}

	includeCycleIssue = &Issue{
		id: IncludeCycleId,
		mdMsg: `
# Include cycle detected!

An @include chain revisits a file it came from, so flattening the
manifest would never finish.

## Example of a cycle:
~~~
# a.grove
@include ./b.grove

# b.grove
@include ./a.grove    # a -> b -> a
~~~

## Things you can try:
- Follow the chain printed in the error message
- Move shared commands into a third file both sides include`,
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# Shell not found!

The shell configured for this command is not installed or not on PATH.

## Shells we look for by default:
- Linux/macOS: bash, sh
- Windows: pwsh, powershell, cmd

## Things you can try:
- Install the shell named in the error message
- Point the command at a different shell:
~~~
deploy():
    shell: sh
    script: ./deploy.sh
~~~

- Or use the built-in interpreter, which needs nothing installed:
~~~
deploy():
    shell: builtin
    script: ./deploy.sh
~~~`,
	}

	privilegeRequiredIssue = &Issue{
		id: PrivilegeRequiredId,
		mdMsg: `
# Elevated privileges required!

This command declares 'privileged:' and the current session is not
elevated.

## Things you can try:
- Linux/macOS: re-run under sudo:
~~~
$ sudo grove run <command>
~~~

- Windows: start the terminal with "Run as administrator"
- Or drop the 'privileged:' line if the command does not need it`,
	}

	validationFailedIssue = &Issue{
		id: ValidationFailedId,
		mdMsg: `
# Input validation failed!

A 'validate:' rule on the command rejected one of its inputs before
anything ran.

## Rule forms:
~~~
release(channel = "stable"):
    validate: {{channel}} in [stable, beta, nightly]
    validate: $REGION matches /^eu-|^us-/
    script: ./release.sh {{channel}}
~~~

## Things you can try:
- Pass a value the rule accepts (the error names the variable)
- Check the rule itself if the value looks right`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the grove configuration file.

## Configuration file locations:
- Linux: ~/.config/grove/config.cue
- macOS: ~/Library/Application Support/grove/config.cue
- Windows: %APPDATA%\grove\config.cue

## Things you can try:
- Check the configuration syntax
- Remove the config file to fall back to defaults:
~~~
$ rm ~/.config/grove/config.cue
~~~

## Example configuration:
~~~cue
shell:     "bash"
log_level: "info"

ui: {
    color_scheme: "auto"
}
~~~`,
	}

	scriptFailedIssue = &Issue{
		id: ScriptFailedId,
		mdMsg: `
# Script execution failed!

The command's script exited with a non-zero status.

## Common causes:
- A program in the script is not installed or not on PATH
- The script stopped at its first failing line
- Missing files or permissions in the working directory

## Things you can try:
- Re-run with the preview to see exactly what executes:
~~~
$ grove run --verbose <command>
~~~

- Test the script lines manually in your shell
- Add a 'fallback:' hook if the failure has a recovery path`,
	}

	envFileMissingIssue = &Issue{
		id: EnvFileMissingId,
		mdMsg: `
# Environment file not found!

An 'env <path>' line points at a file that does not exist.

## Things you can try:
- Create the file, or fix the path (it resolves relative to the
  grovefile that declares it)
- Mark the file optional if it is allowed to be absent:
~~~
service():
    env ./service.env?
    script: ./run.sh
~~~`,
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():   manifestNotFoundIssue,
		manifestParseErrorIssue.Id(): manifestParseErrorIssue,
		commandNotFoundIssue.Id():    commandNotFoundIssue,
		dependencyCycleIssue.Id():    dependencyCycleIssue,
		includeCycleIssue.Id():       includeCycleIssue,
		shellNotFoundIssue.Id():      shellNotFoundIssue,
		privilegeRequiredIssue.Id():  privilegeRequiredIssue,
		validationFailedIssue.Id():   validationFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		scriptFailedIssue.Id():       scriptFailedIssue,
		envFileMissingIssue.Id():     envFileMissingIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
